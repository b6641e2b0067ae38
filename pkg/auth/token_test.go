package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/shopora-backend/pkg/config"
	"github.com/angelmondragon/shopora-backend/pkg/enums"
)

var testCfg = config.JWTConfig{Secret: "secret", Issuer: "shopora", ExpirationMinutes: 15}

func mint(t *testing.T, cfg config.JWTConfig, issuedAt time.Time, payload AccessTokenPayload) string {
	t.Helper()
	token, err := MintAccessToken(cfg, issuedAt, payload)
	require.NoError(t, err)
	return token
}

func TestMintAndParseAccessToken(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	userID := uuid.New()
	token := mint(t, testCfg, now, AccessTokenPayload{UserID: userID, Role: enums.UserRoleAdmin, JTI: " access-1 "})

	claims, err := ParseAccessToken(testCfg, token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, enums.UserRoleAdmin, claims.Role)
	assert.Equal(t, "access-1", claims.ID)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, "shopora", claims.Issuer)
	assert.True(t, claims.ExpiresAt.Equal(now.Add(15*time.Minute)))
}

func TestMintAccessTokenGeneratesJTI(t *testing.T) {
	token := mint(t, testCfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleCustomer})
	claims, err := ParseAccessToken(testCfg, token)
	require.NoError(t, err)
	_, err = uuid.Parse(claims.ID)
	assert.NoError(t, err)
}

func TestMintAccessTokenRejectsBadInput(t *testing.T) {
	good := AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleCustomer}
	cases := map[string]struct {
		cfg     config.JWTConfig
		payload AccessTokenPayload
	}{
		"no secret":   {cfg: config.JWTConfig{Issuer: "shopora", ExpirationMinutes: 5}, payload: good},
		"no issuer":   {cfg: config.JWTConfig{Secret: "s", ExpirationMinutes: 5}, payload: good},
		"no ttl":      {cfg: config.JWTConfig{Secret: "s", Issuer: "shopora"}, payload: good},
		"no user":     {cfg: testCfg, payload: AccessTokenPayload{Role: enums.UserRoleCustomer}},
		"blank role":  {cfg: testCfg, payload: AccessTokenPayload{UserID: uuid.New()}},
		"forged role": {cfg: testCfg, payload: AccessTokenPayload{UserID: uuid.New(), Role: "root"}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := MintAccessToken(tc.cfg, time.Now(), tc.payload)
			assert.Error(t, err)
		})
	}
}

func TestParseAccessTokenFailures(t *testing.T) {
	payload := AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleCustomer}
	fresh := mint(t, testCfg, time.Now(), payload)

	forgedCfg := testCfg
	forgedCfg.Secret = "guessed"
	forged := mint(t, forgedCfg, time.Now(), payload)
	_, err := ParseAccessToken(testCfg, forged)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)

	otherIssuer := testCfg
	otherIssuer.Issuer = "someone-else"
	_, err = ParseAccessToken(otherIssuer, fresh)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)

	stale := mint(t, testCfg, time.Now().Add(-time.Hour), payload)
	_, err = ParseAccessToken(testCfg, stale)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	// Inside the skew allowance the token is still accepted.
	edge := mint(t, testCfg, time.Now().Add(-15*time.Minute-10*time.Second), payload)
	_, err = ParseAccessToken(testCfg, edge)
	assert.NoError(t, err)
}

func TestParseAccessTokenRejectsOtherAlgorithms(t *testing.T) {
	userID := uuid.New()
	claims := AccessTokenClaims{
		UserID: userID,
		Role:   enums.UserRoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "x",
			Issuer:    testCfg.Issuer,
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseAccessToken(testCfg, unsigned)
	assert.Error(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testCfg.Secret))
	require.NoError(t, err)
	_, err = ParseAccessToken(testCfg, hs512)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestParseAccessTokenChecksSubject(t *testing.T) {
	claims := AccessTokenClaims{
		UserID: uuid.New(),
		Role:   enums.UserRoleCustomer,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "x",
			Issuer:    testCfg.Issuer,
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testCfg.Secret))
	require.NoError(t, err)

	_, err = ParseAccessToken(testCfg, token)
	assert.ErrorIs(t, err, errClaimsMismatch)
	_, err = ParseAccessTokenAllowExpired(testCfg, token)
	assert.ErrorIs(t, err, errClaimsMismatch)
}

func TestParseAccessTokenAllowExpiredKeepsJTI(t *testing.T) {
	token := mint(t, testCfg, time.Now().Add(-time.Hour), AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.UserRoleCustomer,
		JTI:    "stale",
	})

	claims, err := ParseAccessTokenAllowExpired(testCfg, token)
	require.NoError(t, err)
	assert.Equal(t, "stale", claims.ID)

	rotated := testCfg
	rotated.Secret = "rotated"
	_, err = ParseAccessTokenAllowExpired(rotated, token)
	assert.Error(t, err)

	otherIssuer := testCfg
	otherIssuer.Issuer = "someone-else"
	_, err = ParseAccessTokenAllowExpired(otherIssuer, token)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
}
