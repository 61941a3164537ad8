package upload

import (
	"fmt"
	"regexp"
)

// Stable rejection codes for batch analysis requests
const (
	CodeEmptyBatch         = "EMPTY_BATCH"
	CodeBatchTooLarge      = "BATCH_TOO_LARGE"
	CodeInvalidDekontID    = "INVALID_DEKONT_ID"
	CodeDuplicateDekontIDs = "DUPLICATE_DEKONT_IDS"
)

// Canonical textual UUID, versions 1 through 5
var dekontIDPattern = regexp.MustCompile(
	`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[1-5][0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12}$`)

// BatchValidator checks batch dekont analysis requests
type BatchValidator struct {
	maxBatchSize int
}

// NewBatchValidator creates a BatchValidator with the given batch ceiling
func NewBatchValidator(maxBatchSize int) *BatchValidator {
	return &BatchValidator{maxBatchSize: maxBatchSize}
}

// ValidateBatch checks a list of dekont ids: non-empty, within the
// batch ceiling, every element a canonical UUID, no duplicates.
func (v *BatchValidator) ValidateBatch(ids []string) ValidationResult {
	if len(ids) == 0 {
		return reject(CodeEmptyBatch, "Dekont listesi boş olamaz.")
	}

	if len(ids) > v.maxBatchSize {
		return reject(CodeBatchTooLarge,
			fmt.Sprintf("Tek seferde en fazla %d dekont analiz edilebilir.", v.maxBatchSize))
	}

	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if !dekontIDPattern.MatchString(id) {
			return reject(CodeInvalidDekontID, "Geçersiz dekont kimliği.")
		}
		seen[id] = struct{}{}
	}

	// Duplicate detection via set-size comparison
	if len(seen) != len(ids) {
		return reject(CodeDuplicateDekontIDs, "Dekont listesi yinelenen kimlikler içeriyor.")
	}

	return accept()
}
