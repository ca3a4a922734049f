package services

import (
	"testing"
	"time"

	"money-tracker/internal/config"
	"money-tracker/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type TokenServiceTestSuite struct {
	suite.Suite
	cfg     *config.JWTConfig
	service *TokenService
	now     time.Time
}

func (s *TokenServiceTestSuite) SetupTest() {
	privateKey, publicKey, err := config.GenerateRSAKeyPair()
	s.Require().NoError(err)

	s.cfg = &config.JWTConfig{
		PrivateKey:           privateKey,
		PublicKey:            publicKey,
		Issuer:               "money-tracker-test",
		AccessTokenDuration:  15 * time.Minute,
		RefreshTokenDuration: 7 * 24 * time.Hour,
	}
	s.service = s.newService(s.cfg)
	s.now = time.Now()
}

func TestTokenServiceSuite(t *testing.T) {
	suite.Run(t, new(TokenServiceTestSuite))
}

func (s *TokenServiceTestSuite) newService(cfg *config.JWTConfig) *TokenService {
	ts, ok := NewTokenService(cfg).(*TokenService)
	s.Require().True(ok)
	return ts
}

func (s *TokenServiceTestSuite) passwordUser() *models.User {
	return &models.User{ID: uuid.New(), Email: "saver@example.com", Provider: models.ProviderPassword}
}

func (s *TokenServiceTestSuite) googleUser() *models.User {
	subject := "1098765"
	return &models.User{ID: uuid.New(), Email: "saver@gmail.com", Provider: models.ProviderGoogle, GoogleSubject: &subject}
}

func (s *TokenServiceTestSuite) TestAccessToken_CarriesProvider() {
	testCases := []struct {
		name   string
		user   *models.User
		google bool
	}{
		{name: "password sign-in", user: s.passwordUser()},
		{name: "google sign-in", user: s.googleUser(), google: true},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			token, expiresAt, err := s.service.IssueAccessToken(tc.user)
			s.Require().NoError(err)
			s.WithinDuration(time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

			claims, err := s.service.ParseAccessToken(token)
			s.Require().NoError(err)

			owner, err := claims.Owner()
			s.Require().NoError(err)
			s.Equal(tc.user.ID, owner)
			s.Equal(tc.user.ID.String(), claims.Subject)
			s.Equal(tc.user.Email, claims.Email)
			s.Equal(tc.user.Provider, claims.Provider)
			s.Equal(tc.google, claims.IsGoogleSession())
			s.Equal(models.TokenTypeAccess, claims.TokenType)
			s.NotEmpty(claims.ID)
		})
	}
}

func (s *TokenServiceTestSuite) TestRefreshToken_CarriesOnlyTheOwner() {
	user := s.googleUser()

	token, expiresAt, err := s.service.IssueRefreshToken(user.ID)
	s.Require().NoError(err)
	s.WithinDuration(time.Now().Add(7*24*time.Hour), expiresAt, 5*time.Second)

	claims, err := s.service.ParseRefreshToken(token)
	s.Require().NoError(err)
	s.Equal(user.ID.String(), claims.UserID)
	s.Empty(claims.Email)
	s.Empty(claims.Provider)
	s.Equal(models.TokenTypeRefresh, claims.TokenType)
}

func (s *TokenServiceTestSuite) TestEveryTokenHasItsOwnJTI() {
	user := s.passwordUser()
	seen := make(map[string]bool)

	for i := 0; i < 5; i++ {
		token, _, err := s.service.IssueAccessToken(user)
		s.Require().NoError(err)
		claims, err := s.service.ParseAccessToken(token)
		s.Require().NoError(err)
		s.False(seen[claims.ID], "duplicate jti %s", claims.ID)
		seen[claims.ID] = true
	}
}

func (s *TokenServiceTestSuite) TestIssue_RequiresOwner() {
	_, _, err := s.service.IssueAccessToken(nil)
	s.ErrorIs(err, models.ErrTokenOwner)

	_, _, err = s.service.IssueAccessToken(&models.User{Email: "nobody@example.com"})
	s.ErrorIs(err, models.ErrTokenOwner)

	_, _, err = s.service.IssueRefreshToken(uuid.Nil)
	s.ErrorIs(err, models.ErrTokenOwner)
}

func (s *TokenServiceTestSuite) TestTokenTypesAreNotInterchangeable() {
	user := s.passwordUser()

	access, _, err := s.service.IssueAccessToken(user)
	s.Require().NoError(err)
	refresh, _, err := s.service.IssueRefreshToken(user.ID)
	s.Require().NoError(err)

	_, err = s.service.ParseRefreshToken(access)
	s.ErrorIs(err, ErrInvalidTokenType)

	_, err = s.service.ParseAccessToken(refresh)
	s.ErrorIs(err, ErrInvalidTokenType)
}

func (s *TokenServiceTestSuite) TestExpiredToken() {
	token, _, err := s.service.IssueAccessToken(s.passwordUser())
	s.Require().NoError(err)

	s.service.now = func() time.Time { return s.now.Add(16 * time.Minute) }

	_, err = s.service.ParseAccessToken(token)
	s.ErrorIs(err, ErrExpiredToken)
}

func (s *TokenServiceTestSuite) TestWrongIssuer() {
	cfg := *s.cfg
	cfg.Issuer = "someone-else"
	foreign := s.newService(&cfg)

	token, _, err := foreign.IssueAccessToken(s.passwordUser())
	s.Require().NoError(err)

	_, err = s.service.ParseAccessToken(token)
	s.ErrorIs(err, ErrInvalidIssuer)
}

func (s *TokenServiceTestSuite) TestForeignSigningKey() {
	privateKey, publicKey, err := config.GenerateRSAKeyPair()
	s.Require().NoError(err)

	cfg := *s.cfg
	cfg.PrivateKey, cfg.PublicKey = privateKey, publicKey
	token, _, err := s.newService(&cfg).IssueAccessToken(s.passwordUser())
	s.Require().NoError(err)

	_, err = s.service.ParseAccessToken(token)
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *TokenServiceTestSuite) TestRejectsOtherAlgorithms() {
	owner := uuid.New()
	claims := models.CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   owner.String(),
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		UserID:    owner.String(),
		TokenType: models.TokenTypeAccess,
	}

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	s.Require().NoError(err)
	_, err = s.service.ParseAccessToken(unsigned)
	s.ErrorIs(err, ErrInvalidToken)

	hmac, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("shared-secret"))
	s.Require().NoError(err)
	_, err = s.service.ParseAccessToken(hmac)
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *TokenServiceTestSuite) TestRejectsMismatchedSubject() {
	claims, _ := s.service.claimsFor(uuid.New(), models.TokenTypeAccess, time.Hour)
	claims.Subject = uuid.NewString()

	token, err := s.service.sign(claims)
	s.Require().NoError(err)

	_, err = s.service.ParseAccessToken(token)
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *TokenServiceTestSuite) TestParse_EmptyOrGarbage() {
	_, err := s.service.ParseAccessToken("")
	s.ErrorIs(err, ErrEmptyToken)

	_, err = s.service.ParseAccessToken("not.a.jwt")
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *TokenServiceTestSuite) TestBearerToken() {
	testCases := []struct {
		header string
		want   string
		err    bool
	}{
		{header: "Bearer abc.def.ghi", want: "abc.def.ghi"},
		{header: "bearer abc.def.ghi", want: "abc.def.ghi"},
		{header: "BEARER   abc.def.ghi  ", want: "abc.def.ghi"},
		{header: "Basic dXNlcjpwYXNz", err: true},
		{header: "Bearer ", err: true},
		{header: "Bearer", err: true},
		{header: "", err: true},
	}

	for _, tc := range testCases {
		s.Run(tc.header, func() {
			token, err := s.service.BearerToken(tc.header)
			if tc.err {
				s.ErrorIs(err, ErrInvalidAuthHeader)
				return
			}
			s.Require().NoError(err)
			s.Equal(tc.want, token)
		})
	}
}

func (s *TokenServiceTestSuite) TestPeekClaims_ReadsExpiredToken() {
	user := s.passwordUser()
	token, expiresAt, err := s.service.IssueAccessToken(user)
	s.Require().NoError(err)

	s.service.now = func() time.Time { return s.now.Add(time.Hour) }
	_, err = s.service.ParseAccessToken(token)
	s.Require().ErrorIs(err, ErrExpiredToken)

	claims, err := s.service.PeekClaims(token)
	s.Require().NoError(err)
	s.NotEmpty(claims.ID)
	s.Equal(user.ID.String(), claims.UserID)
	s.WithinDuration(expiresAt, claims.ExpiresAt.Time, time.Second)

	_, err = s.service.PeekClaims("")
	s.ErrorIs(err, ErrEmptyToken)
	_, err = s.service.PeekClaims("garbage")
	s.ErrorIs(err, ErrInvalidToken)
}
