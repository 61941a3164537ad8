// Package upload validates dekont files and batch analysis requests
// before they reach downstream processing.
package upload

import (
	"bytes"
	"fmt"
	"strings"
)

// Stable rejection codes for the file validation pipeline
const (
	CodeFileTooLarge            = "FILE_TOO_LARGE"
	CodeInvalidFileType         = "INVALID_FILE_TYPE"
	CodeInvalidMimeType         = "INVALID_MIME_TYPE"
	CodeSuspiciousFilename      = "SUSPICIOUS_FILENAME"
	CodeSuspiciousFileSize      = "SUSPICIOUS_FILE_SIZE"
	CodeSuspiciousFileStructure = "SUSPICIOUS_FILE_STRUCTURE"
)

// ValidationResult is the outcome of a validation pipeline run. A
// rejection carries a human-readable Turkish message and a stable
// machine-readable code; success carries neither.
type ValidationResult struct {
	IsValid bool   `json:"is_valid"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

func reject(code, message string) ValidationResult {
	return ValidationResult{IsValid: false, Error: message, Code: code}
}

func accept() ValidationResult {
	return ValidationResult{IsValid: true}
}

// minPlausibleSize guards the lower end: the size ceiling only bounds
// the upper end, so empty or truncated uploads would otherwise slip
// through.
const minPlausibleSize = 100

// nulProportionMax is the crude binary-injection threshold
const nulProportionMax = 0.8

var allowedExtensions = map[string]bool{
	"pdf":  true,
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"webp": true,
}

var allowedMimeTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/jpg":       true,
	"image/png":       true,
	"image/webp":      true,
}

// suspiciousFilenameChars are shell metacharacters that have no place
// in an uploaded dekont's name
const suspiciousFilenameChars = "<>|&;`$(){}\x00"

// Validator runs the dekont file validation pipeline
type Validator struct {
	maxFileSize int64
}

// NewValidator creates a Validator with the given size ceiling
func NewValidator(maxFileSize int64) *Validator {
	return &Validator{maxFileSize: maxFileSize}
}

// Validate runs the pipeline checks in fixed order, short-circuiting on
// the first failure: size ceiling, extension allow-list, declared MIME
// allow-list (only when supplied), magic-byte signature by extension,
// then heuristic content checks.
func (v *Validator) Validate(buf []byte, fileName, declaredMimeType string) ValidationResult {
	if int64(len(buf)) > v.maxFileSize {
		return reject(CodeFileTooLarge,
			fmt.Sprintf("Dosya boyutu çok büyük. En fazla %d MB yükleyebilirsiniz.", v.maxFileSize/(1024*1024)))
	}

	ext := extensionOf(fileName)
	if !allowedExtensions[ext] {
		return reject(CodeInvalidFileType,
			"Geçersiz dosya türü. Sadece PDF, JPG, JPEG, PNG ve WEBP dosyaları kabul edilir.")
	}

	if declaredMimeType != "" && !allowedMimeTypes[declaredMimeType] {
		return reject(CodeInvalidMimeType,
			"Geçersiz MIME türü. Dosya içeriği beyan edilen türle uyuşmuyor.")
	}

	if result := checkSignature(buf, ext); !result.IsValid {
		return result
	}

	if strings.ContainsAny(fileName, suspiciousFilenameChars) {
		return reject(CodeSuspiciousFilename,
			"Dosya adı geçersiz karakterler içeriyor.")
	}

	if len(buf) < minPlausibleSize {
		return reject(CodeSuspiciousFileSize,
			"Dosya boş veya bozuk görünüyor. Lütfen geçerli bir dekont yükleyin.")
	}

	if nulProportion(buf) > nulProportionMax {
		return reject(CodeSuspiciousFileStructure,
			"Dosya yapısı geçersiz. Lütfen geçerli bir dekont yükleyin.")
	}

	return accept()
}

// extensionOf returns the lower-cased suffix after the last dot
func extensionOf(fileName string) string {
	idx := strings.LastIndex(fileName, ".")
	if idx < 0 || idx == len(fileName)-1 {
		return ""
	}
	return strings.ToLower(fileName[idx+1:])
}

// checkSignature verifies the magic bytes a renamed file cannot fake.
// webp has no signature check; the extension and MIME checks already
// cover it.
func checkSignature(buf []byte, ext string) ValidationResult {
	switch ext {
	case "pdf":
		if len(buf) < 4 || !bytes.HasPrefix(buf, []byte("%PDF")) {
			return reject("INVALID_PDF_SIGNATURE",
				"Dosya geçerli bir PDF değil.")
		}
	case "jpg", "jpeg":
		if len(buf) < 2 || buf[0] != 0xFF || buf[1] != 0xD8 {
			return reject(fmt.Sprintf("INVALID_%s_SIGNATURE", strings.ToUpper(ext)),
				"Dosya geçerli bir JPEG görseli değil.")
		}
	case "png":
		if len(buf) < 4 || !bytes.Equal(buf[:4], []byte{0x89, 0x50, 0x4E, 0x47}) {
			return reject("INVALID_PNG_SIGNATURE",
				"Dosya geçerli bir PNG görseli değil.")
		}
	}
	return accept()
}

func nulProportion(buf []byte) float64 {
	if len(buf) == 0 {
		return 0
	}
	nuls := 0
	for _, b := range buf {
		if b == 0 {
			nuls++
		}
	}
	return float64(nuls) / float64(len(buf))
}
