package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimmygitz3/final-project/internal/apperr"
	"github.com/jimmygitz3/final-project/internal/model"
	"github.com/jimmygitz3/final-project/internal/mpesa"
)

func registerInput(role model.Role) RegisterInput {
	return RegisterInput{
		Name:       "Achieng Otieno",
		Email:      "Achieng@Example.com",
		Password:   "hunter22",
		Phone:      "0712345678",
		UserType:   role,
		University: "Kenyatta University",
	}
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t, mpesa.ModeSimulator)

	res, err := f.auth.Register(f.ctx, registerInput(model.RoleTenant))
	require.NoError(t, err)
	assert.Equal(t, "achieng@example.com", res.User.Email)
	assert.NotEqual(t, "hunter22", res.User.PasswordHash)
	assert.Equal(t, model.SubscriptionActive, res.User.SubscriptionStatus)

	claims, err := f.tokens.Parse(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID.Hex(), claims.Subject)
	assert.Equal(t, "tenant", claims.Role)

	login, err := f.auth.Login(f.ctx, LoginInput{Email: "ACHIENG@example.com", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, login.User.ID)

	_, err = f.auth.Login(f.ctx, LoginInput{Email: "achieng@example.com", Password: "wrong-pass"})
	assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))
	_, err = f.auth.Login(f.ctx, LoginInput{Email: "nobody@example.com", Password: "hunter22"})
	assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))

	me, err := f.auth.Me(f.ctx, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "Achieng Otieno", me.Name)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	f := newFixture(t, mpesa.ModeSimulator)
	_, err := f.auth.Register(f.ctx, registerInput(model.RoleTenant))
	require.NoError(t, err)

	again := registerInput(model.RoleLandlord)
	again.Email = "achieng@example.com"
	_, err = f.auth.Register(f.ctx, again)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t, mpesa.ModeSimulator)

	landlord, err := f.auth.Register(f.ctx, func() RegisterInput {
		in := registerInput(model.RoleLandlord)
		in.University = ""
		return in
	}())
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionInactive, landlord.User.SubscriptionStatus)

	for name, mutate := range map[string]func(*RegisterInput){
		"bad email":        func(in *RegisterInput) { in.Email = "not-an-email" },
		"short password":   func(in *RegisterInput) { in.Password = "12345" },
		"unknown role":     func(in *RegisterInput) { in.UserType = "admin" },
		"tenant no campus": func(in *RegisterInput) { in.University = " " },
	} {
		in := registerInput(model.RoleTenant)
		in.Email = "other@example.com"
		mutate(&in)
		_, err := f.auth.Register(f.ctx, in)
		assert.True(t, apperr.Is(err, apperr.KindValidation), name)
	}
}
