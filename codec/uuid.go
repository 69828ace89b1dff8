package codec

import (
	"github.com/google/uuid"

	"github.com/reoring/goshape"
)

// UUID registers uuid.UUID as its canonical hyphenated string.
func UUID(reg *goshape.Registry) error {
	return goshape.Scalar(reg, "uuid",
		func(u uuid.UUID) (goshape.Token, error) {
			return goshape.StringToken(u.String()), nil
		},
		func(tok goshape.Token) (uuid.UUID, error) {
			if tok.Kind != goshape.TokenString {
				return uuid.Nil, expected("UUID string", tok)
			}
			u, err := uuid.Parse(tok.String)
			if err != nil {
				return uuid.Nil, goshape.Issues{{Path: "/", Code: goshape.CodeInvalidType, Message: "invalid UUID", Cause: err, Offset: tok.Offset}}
			}
			return u, nil
		})
}
