package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

// PasswordServiceTestSuite defines the test suite for PasswordService
type PasswordServiceTestSuite struct {
	suite.Suite
	service PasswordServiceInterface
}

// SetupTest runs before each test
func (s *PasswordServiceTestSuite) SetupTest() {
	s.service = NewPasswordService(bcrypt.MinCost, 8)
}

// TestPasswordServiceSuite runs the test suite
func TestPasswordServiceSuite(t *testing.T) {
	suite.Run(t, new(PasswordServiceTestSuite))
}

func (s *PasswordServiceTestSuite) TestValidatePassword() {
	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{"valid", "Budget2024", nil},
		{"minimum valid", "Abcdefg1", nil},
		{"with spaces", "My Budget 2024", nil},
		{"empty", "", ErrPasswordEmpty},
		{"too long", "Aa1" + strings.Repeat("x", MaxPasswordLength), ErrPasswordTooLong},
		{"missing uppercase", "budget2024", ErrPasswordNoUppercase},
		{"missing lowercase", "BUDGET2024", ErrPasswordNoLowercase},
		{"missing number", "BudgetBudget", ErrPasswordNoNumber},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			err := s.service.ValidatePassword(tt.password)
			if tt.wantErr == nil {
				s.NoError(err)
				return
			}
			s.ErrorIs(err, tt.wantErr)
		})
	}
}

func (s *PasswordServiceTestSuite) TestValidatePassword_TooShort() {
	err := s.service.ValidatePassword("Ab1")

	var tooShort *PasswordTooShortError
	s.Require().ErrorAs(err, &tooShort)
	s.Equal(8, tooShort.Min)
	s.Contains(err.Error(), "at least 8")
}

func (s *PasswordServiceTestSuite) TestNewPasswordService_FallsBackToDefaults() {
	service := NewPasswordService(0, -1).(*PasswordService)
	s.Equal(DefaultBCryptCost, service.cost)
	s.Equal(DefaultMinPasswordLength, service.minLength)
}

func (s *PasswordServiceTestSuite) TestHashPassword() {
	hash, err := s.service.HashPassword("Budget2024")
	s.Require().NoError(err)
	s.NotEqual("Budget2024", hash)
	s.True(strings.HasPrefix(hash, "$2a$"))
	s.True(s.service.ComparePassword("Budget2024", hash))
}

func (s *PasswordServiceTestSuite) TestHashPassword_InvalidPassword() {
	hash, err := s.service.HashPassword("weak")
	s.Error(err)
	s.Empty(hash)
	s.Contains(err.Error(), "password validation failed")
}

func (s *PasswordServiceTestSuite) TestHashUniqueness() {
	first, err := s.service.HashPassword("Budget2024")
	s.Require().NoError(err)
	second, err := s.service.HashPassword("Budget2024")
	s.Require().NoError(err)

	s.NotEqual(first, second)
	s.True(s.service.ComparePassword("Budget2024", first))
	s.True(s.service.ComparePassword("Budget2024", second))
}

func (s *PasswordServiceTestSuite) TestComparePassword() {
	hash, err := s.service.HashPassword("Budget2024")
	s.Require().NoError(err)

	s.False(s.service.ComparePassword("budget2024", hash))
	s.False(s.service.ComparePassword("", hash))
	s.False(s.service.ComparePassword("Budget2024", ""))
	s.False(s.service.ComparePassword("Budget2024", "not-a-hash"))
}
