package dto

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
)

func TestSanitizeStruct_TrimsAndEscapes(t *testing.T) {
	req := OrderRequest{
		Service:   "  likes-mix ",
		Link:      " https://instagram.com/p/abc?x=1&y=<2> ",
		Reference: "<b>r1</b>",
	}
	SanitizeStruct(&req)

	assert.Equal(t, "likes-mix", req.Service)
	assert.Equal(t, "https://instagram.com/p/abc?x=1&y=<2>", req.Link, "trim-only fields keep their characters")
	assert.Equal(t, "&lt;b&gt;r1&lt;/b&gt;", req.Reference)
}

func TestSanitizeStruct_PointerFields(t *testing.T) {
	s := "  <i>x</i>  "
	v := struct {
		Note  *string
		Empty *string
	}{Note: &s}
	SanitizeStruct(&v)

	assert.Equal(t, "&lt;i&gt;x&lt;/i&gt;", *v.Note)
	assert.Nil(t, v.Empty)
}

func TestSanitizeStruct_NonPointerIsNoOp(t *testing.T) {
	SanitizeStruct("hello")
}

func TestSafeID(t *testing.T) {
	for _, tc := range []string{"likes-mix", "REF_002", "a.b.c", "order123"} {
		assert.True(t, safeStringRe.MatchString(tc), "expected valid: %s", tc)
	}
	for _, tc := range []string{"", "has space", "semi;colon", "<script>", "slash/path"} {
		assert.False(t, safeStringRe.MatchString(tc), "expected invalid: %s", tc)
	}
}

func TestOrderRequestBinding(t *testing.T) {
	valid := OrderRequest{Service: "likes-mix", Link: "https://instagram.com/p/abc", Quantity: 100}
	assert.NoError(t, binding.Validator.ValidateStruct(&valid))

	for name, req := range map[string]OrderRequest{
		"ftp link":      {Service: "likes-mix", Link: "ftp://x.test/a", Quantity: 100},
		"relative link": {Service: "likes-mix", Link: "/p/abc", Quantity: 100},
		"bad service":   {Service: "likes mix", Link: "https://x.test", Quantity: 100},
		"zero quantity": {Service: "likes-mix", Link: "https://x.test"},
		"bad reference": {Service: "likes-mix", Link: "https://x.test", Quantity: 1, Reference: "a/b"},
	} {
		assert.Error(t, binding.Validator.ValidateStruct(&req), name)
	}
}

func TestCreateSessionRequestBinding(t *testing.T) {
	assert.NoError(t, binding.Validator.ValidateStruct(&CreateSessionRequest{Amount: 500}))
	assert.NoError(t, binding.Validator.ValidateStruct(&CreateSessionRequest{Amount: 500, PaymentMethod: "paypal"}))
	assert.Error(t, binding.Validator.ValidateStruct(&CreateSessionRequest{Amount: 0}))
	assert.Error(t, binding.Validator.ValidateStruct(&CreateSessionRequest{Amount: 5, PaymentMethod: "bitcoin"}))
}
