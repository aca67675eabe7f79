// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `internal/config/loader.go` calls `validateStruct` immediately after it
// unmarshals the merged Koanf tree into a `Config` instance.  Any tag
// mismatch or validation error aborts startup, ensuring the binary never
// runs with partial, malformed, or missing configuration.
//
// Beyond the struct tags, one cross-section rule lives here: the sqids
// decoder needs an alphabet, the int decoder must not carry one.

package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

//
// validator instance (package-level singleton)
//

var v = validator.New(validator.WithRequiredStructEnabled())

//
// public API
//

// validateStruct returns the validation errors joined, or nil on success.
func validateStruct(c *Config) error {
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]error, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Errorf("config: %s fails %q", fe.Namespace(), fe.Tag()))
			}
			return errors.Join(msgs...)
		}
		return err
	}

	switch c.Gate.Decoder {
	case "sqids":
		if c.Gate.Sqids.Alphabet == "" {
			return errors.New("config: gate.sqids.alphabet is required when gate.decoder is sqids")
		}
	case "int":
		if c.Gate.Sqids.Alphabet != "" {
			return errors.New("config: gate.sqids.alphabet is set but gate.decoder is int")
		}
	}
	return nil
}
