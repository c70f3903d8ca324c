package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Profile is the athlete description every prompt is built from.
// Its canonical JSON form is the basis of the request fingerprint, so field
// order and tags must stay stable.
type Profile struct {
	Age                 int      `json:"age" yaml:"age" validate:"required,gte=10,lte=100"`
	Sex                 string   `json:"sex" yaml:"sex" validate:"omitempty,oneof=male female other"`
	HeightCm            float64  `json:"heightCm" yaml:"heightCm" validate:"required,gt=0"`
	WeightKg            float64  `json:"weightKg" yaml:"weightKg" validate:"required,gt=0"`
	Goal                string   `json:"goal" yaml:"goal" validate:"required"`
	Experience          string   `json:"experience" yaml:"experience" validate:"omitempty,oneof=beginner intermediate advanced"`
	DaysPerWeek         int      `json:"daysPerWeek" yaml:"daysPerWeek" validate:"required,gte=1,lte=7"`
	Equipment           string   `json:"equipment,omitempty" yaml:"equipment"`
	DietaryRestrictions []string `json:"dietaryRestrictions,omitempty" yaml:"dietaryRestrictions"`
	SleepHours          float64  `json:"sleepHours,omitempty" yaml:"sleepHours"`
}

// Hash returns the hex SHA-256 digest of the profile's canonical JSON form.
func (p Profile) Hash() string {
	// Profile has no map fields, so encoding/json output is deterministic.
	data, err := json.Marshal(p)
	if err != nil {
		// Only reachable with NaN/Inf floats; hash the formatted value instead.
		data = []byte(fmt.Sprintf("%#v", p))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Operation names the kind of payload a generation produces.
type Operation string

// Supported operations.
const (
	OperationTraining  Operation = "training"
	OperationNutrition Operation = "nutrition"
	OperationSleep     Operation = "sleep"
	OperationChat      Operation = "chat"
	OperationBundle    Operation = "bundle"
)

// Valid reports whether op is one of the supported operations.
func (op Operation) Valid() bool {
	switch op {
	case OperationTraining, OperationNutrition, OperationSleep, OperationChat, OperationBundle:
		return true
	}
	return false
}

// GenerationRequest identifies one generation for cache and in-flight lookup.
type GenerationRequest struct {
	Operation Operation `json:"operation"`
	Profile   Profile   `json:"profile"`
	WeekIndex int       `json:"weekIndex"`
	Locale    string    `json:"locale"`

	// Message is the user's chat message. It is part of the identity only for
	// chat requests.
	Message string `json:"message,omitempty"`
}

// Fingerprint is the deterministic key derived from the operation, the
// profile content, the week index and the locale.
func (r GenerationRequest) Fingerprint() string {
	key := fmt.Sprintf("%s:%s:%d:%s", r.Operation, r.Profile.Hash(), r.WeekIndex, NormalizeLocale(r.Locale))
	if r.Operation == OperationChat {
		sum := sha256.Sum256([]byte(r.Message))
		key += ":" + hex.EncodeToString(sum[:8])
	}
	return key
}

// NormalizeLocale lowercases a locale tag and converts "_" separators to "-".
// An empty tag becomes "en".
func NormalizeLocale(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	tag = strings.ReplaceAll(tag, "_", "-")
	if tag == "" {
		return "en"
	}
	return tag
}

// Language returns the primary language subtag of a locale, e.g. "ru" for "ru-RU".
func Language(tag string) string {
	tag = NormalizeLocale(tag)
	if i := strings.IndexByte(tag, '-'); i >= 0 {
		return tag[:i]
	}
	return tag
}
