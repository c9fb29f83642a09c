// SPDX-License-Identifier: Apache-2.0

package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tillpoint/accounts/models"
)

func TestClassifyIdentifier(t *testing.T) {
	tests := []struct {
		input string
		want  models.IdentifierKind
	}{
		{"a@b.com", models.KindEmail},
		{"john.doe@shop.example.co.uk", models.KindEmail},
		{"12345", models.KindUserCode},
		{"123", models.KindUserCode},
		{"480213", models.KindUserCode},
		{"john_doe", models.KindUsername},
		{"1234567", models.KindUsername}, // 7 digits: too long for a staff code
		{"12", models.KindUsername},      // 2 digits: too short for a staff code
		{"john@", models.KindUsername},   // no domain, fails email grammar
		{"", models.KindUsername},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyIdentifier(tc.input))
		})
	}
}

func TestValidUsername(t *testing.T) {
	assert.True(t, ValidUsername("alice01"))
	assert.True(t, ValidUsername("a_b"))
	assert.False(t, ValidUsername("ab"))          // too short
	assert.False(t, ValidUsername("has space"))   // disallowed char
	assert.False(t, ValidUsername("dash-not-ok")) // disallowed char
	assert.False(t, ValidUsername(""))            // empty
	assert.False(t, ValidUsername(str(51, 'a')))  // too long
	assert.True(t, ValidUsername(str(50, 'a')))   // boundary
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("a@x.com"))
	assert.False(t, ValidEmail("a@x"))
	assert.False(t, ValidEmail("not-an-email"))
	assert.False(t, ValidEmail("two@@x.com"))
	assert.False(t, ValidEmail(str(250, 'a')+"@x.com")) // over the length cap
}

func str(n int, c byte) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = c
	}
	return string(b)
}
