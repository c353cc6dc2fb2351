package models

import (
	"errors"
	"strings"
	"time"
)

// CheckInResult is the recorded outcome of a scan attempt
type CheckInResult string

const (
	ScanAccepted        CheckInResult = "accepted"
	ScanRejectedUsed    CheckInResult = "rejected_already_used"
	ScanRejectedVoid    CheckInResult = "rejected_cancelled"
	ScanRejectedUnknown CheckInResult = "rejected_unknown"
)

// CheckInLog is an append-only record of a scan at a gate. Exactly one
// accepted row exists for every ticket that reaches USED; rejected scans
// may additionally be recorded for audit but never as a second acceptance.
type CheckInLog struct {
	ID        int           `json:"id" db:"id"`
	TicketID  int           `json:"ticket_id" db:"ticket_id"`
	Scanner   string        `json:"scanner" db:"scanner"`
	Result    CheckInResult `json:"result" db:"result"`
	ScannedAt time.Time     `json:"scanned_at" db:"scanned_at"`
}

// qrCodePrefix is the issuance prefix every eventgate QR token carries
const qrCodePrefix = "TKT-"

// ValidateQRCodeFormat checks the shape of a presented QR token before any
// storage lookup. A malformed token is a contract violation, not a denial.
func ValidateQRCodeFormat(qrCode string) error {
	if qrCode == "" {
		return errors.New("QR code is required")
	}

	if len(qrCode) > 255 {
		return errors.New("QR code must be less than 255 characters")
	}

	if !strings.HasPrefix(qrCode, qrCodePrefix) {
		return errors.New("QR code format is invalid")
	}

	return nil
}

// ValidateScanner checks the gate/operator identity attached to a scan
func ValidateScanner(scanner string) error {
	if strings.TrimSpace(scanner) == "" {
		return errors.New("scanner identity is required")
	}

	if len(scanner) > 100 {
		return errors.New("scanner identity must be less than 100 characters")
	}

	return nil
}
