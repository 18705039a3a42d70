package user

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUser_Validate(t *testing.T) {
	valid := User{Username: "john", Email: "john@mail.com", Password: "secret-pass", Role: RoleUser}

	tests := []struct {
		name   string
		mutate func(u *User)
		want   error
	}{
		{name: "valid", mutate: func(u *User) {}, want: nil},
		{name: "long username", mutate: func(u *User) { u.Username = strings.Repeat("a", 51) }, want: ErrInvalidUsername},
		{name: "missing email", mutate: func(u *User) { u.Email = "" }, want: ErrInvalidEmail},
		{name: "password over 72 bytes", mutate: func(u *User) { u.Password = strings.Repeat("p", 73) }, want: ErrInvalidPassword},
		{name: "unknown role", mutate: func(u *User) { u.Role = "root" }, want: ErrInvalidRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := valid
			tt.mutate(&u)

			assert.Equal(t, tt.want, u.Validate())
		})
	}
}
