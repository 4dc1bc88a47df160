package session

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playarena/chat-sync/internal/config"
	"github.com/playarena/chat-sync/pkg/testhelpers"
)

func unsignedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	return raw
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		userID  string
		token   string
		want    string
		wantErr error
	}{
		{
			name:   "explicit user id wins",
			userID: "u-explicit",
			token:  testhelpers.IssueToken("u-token"),
			want:   "u-explicit",
		},
		{
			name:  "subject claim",
			token: testhelpers.IssueToken("u-token"),
			want:  "u-token",
		},
		{
			name:  "bearer prefix is stripped",
			token: "Bearer " + testhelpers.IssueToken("u-token"),
			want:  "u-token",
		},
		{
			name:    "nothing configured",
			wantErr: ErrNoIdentity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := Resolve(tt.userID, tt.token)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, id.UserID)
			assert.NotContains(t, id.Token, "Bearer")
		})
	}
}

func TestUserIDFromToken_AlternateClaims(t *testing.T) {
	id, err := UserIDFromToken(unsignedToken(t, jwt.MapClaims{"id": "u-1"}))
	require.NoError(t, err)
	assert.Equal(t, "u-1", id)

	id, err = UserIDFromToken(unsignedToken(t, jwt.MapClaims{"_id": "u-2"}))
	require.NoError(t, err)
	assert.Equal(t, "u-2", id)

	_, err = UserIDFromToken(unsignedToken(t, jwt.MapClaims{"name": "x"}))
	assert.ErrorIs(t, err, ErrNoIdentity)

	_, err = UserIDFromToken("not-a-jwt")
	assert.Error(t, err)
}

func TestFromConfig(t *testing.T) {
	id, err := FromConfig(&config.Config{APIToken: testhelpers.IssueToken("u-cfg")})
	require.NoError(t, err)
	assert.Equal(t, "u-cfg", id.UserID)
}
