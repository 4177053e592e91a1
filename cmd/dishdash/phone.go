package main

import (
	"fmt"

	"github.com/nyaruka/phonenumbers"
)

// normalizePhone turns a user-typed number into E.164. Numbers without a
// country code are read in region.
func normalizePhone(raw, region string) (string, error) {
	if raw == "" {
		return "", nil
	}
	num, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return "", fmt.Errorf("invalid phone number %q: %w", raw, err)
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", fmt.Errorf("invalid phone number %q for region %s", raw, region)
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
