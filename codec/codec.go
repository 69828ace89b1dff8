package codec

import (
	"errors"

	"github.com/reoring/goshape"
)

// RegisterAll binds every shape in this package to reg.
func RegisterAll(reg *goshape.Registry) error {
	return errors.Join(Time(reg), Duration(reg), UUID(reg))
}
