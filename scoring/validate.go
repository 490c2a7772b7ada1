package scoring

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is shared across calls; validator.Validate is safe for
// concurrent use.
var validate = validator.New()

// Validate checks the record at the boundary: IP must be present and
// every port must be a valid TCP port number. The scorers themselves
// never fail on missing optional fields, so calling Validate is only
// needed when the record arrives from an untrusted producer.
func (r ScanRecord) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid scan record: %w", err)
	}
	return nil
}
