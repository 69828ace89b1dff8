package codec

import (
	"time"

	"github.com/reoring/goshape"
)

// Duration registers time.Duration as its string form ("1h30m").
// Plain numbers are accepted on input as nanoseconds.
func Duration(reg *goshape.Registry) error {
	return goshape.Scalar(reg, "duration",
		func(d time.Duration) (goshape.Token, error) {
			return goshape.StringToken(d.String()), nil
		},
		func(tok goshape.Token) (time.Duration, error) {
			switch tok.Kind {
			case goshape.TokenString:
				d, err := time.ParseDuration(tok.String)
				if err != nil {
					return 0, goshape.Issues{{Path: "/", Code: goshape.CodeInvalidType, Message: "invalid duration", Cause: err, Offset: tok.Offset}}
				}
				return d, nil
			case goshape.TokenNumber:
				n, err := goshape.Deserialize[int64](reg, goshape.NewTape(tok))
				if err != nil {
					return 0, err
				}
				return time.Duration(n), nil
			default:
				return 0, expected("duration string", tok)
			}
		})
}
