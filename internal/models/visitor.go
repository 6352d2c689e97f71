package models

import (
	"errors"
	"strings"
	"time"
)

// VisitorStatus represents the lifecycle status of a visitor record
type VisitorStatus string

const (
	VisitorStatusPending   VisitorStatus = "pending"
	VisitorStatusApproved  VisitorStatus = "approved"
	VisitorStatusRejected  VisitorStatus = "rejected"
	VisitorStatusCheckedIn VisitorStatus = "checked_in"

	// VisitorStatusCheckedOut is modeled for a future formal checkout flow.
	// No handler currently sets it; checked-in visitors only receive an
	// advisory exit mark from their host resident.
	VisitorStatusCheckedOut VisitorStatus = "checked_out"
)

// IDCardType enumerates accepted visitor ID card types
type IDCardType string

const (
	IDCardTypeNIC            IDCardType = "nic"
	IDCardTypePassport       IDCardType = "passport"
	IDCardTypeDrivingLicense IDCardType = "driving_license"
)

// DefaultRejectionReason is stamped when a resident rejects without a reason
const DefaultRejectionReason = "Rejected by resident"

// Visitor represents one visit request/event scoped to a property
type Visitor struct {
	ID             string        `json:"id" db:"id"`
	PropertyID     string        `json:"property_id" db:"property_id"`
	HostResidentID string        `json:"host_resident_id" db:"host_resident_id"`
	Name           string        `json:"name" db:"name"`
	Phone          *string       `json:"phone,omitempty" db:"phone"`
	PhoneVerified  bool          `json:"phone_verified" db:"phone_verified"`
	PhotoURL       *string       `json:"photo_url,omitempty" db:"photo_url"`
	IDCardType     *string       `json:"id_card_type,omitempty" db:"id_card_type"`
	IDCardNumber   *string       `json:"id_card_number,omitempty" db:"id_card_number"`
	IDCardImageURL *string       `json:"id_card_image_url,omitempty" db:"id_card_image_url"`
	Purpose        string        `json:"purpose" db:"purpose"`
	VehicleNumber  *string       `json:"vehicle_number,omitempty" db:"vehicle_number"`
	NumberOfPersons int          `json:"number_of_persons" db:"number_of_persons"`
	Status         VisitorStatus `json:"status" db:"status"`

	// Approval audit
	ApprovedBy      *string    `json:"approved_by,omitempty" db:"approved_by"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty" db:"approved_at"`
	RejectedBy      *string    `json:"rejected_by,omitempty" db:"rejected_by"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty" db:"rejected_at"`
	RejectionReason *string    `json:"rejection_reason,omitempty" db:"rejection_reason"`

	// Check-in audit
	CheckedInBy *string    `json:"checked_in_by,omitempty" db:"checked_in_by"`
	CheckInTime *time.Time `json:"check_in_time,omitempty" db:"check_in_time"`

	// Formal checkout audit (reserved; no transition sets these today)
	CheckedOutBy *string    `json:"checked_out_by,omitempty" db:"checked_out_by"`
	CheckOutTime *time.Time `json:"check_out_time,omitempty" db:"check_out_time"`

	// Resident-initiated advisory exit mark; status stays checked_in
	MarkedExitBy *string    `json:"marked_exit_by,omitempty" db:"marked_exit_by"`
	MarkedExitAt *time.Time `json:"marked_exit_at,omitempty" db:"marked_exit_at"`

	// Forwarding audit
	IsForwarded    bool       `json:"is_forwarded" db:"is_forwarded"`
	ForwardedFrom  *string    `json:"forwarded_from,omitempty" db:"forwarded_from"`
	ForwardedTo    *string    `json:"forwarded_to,omitempty" db:"forwarded_to"`
	ForwardedAt    *time.Time `json:"forwarded_at,omitempty" db:"forwarded_at"`
	ForwardingNote *string    `json:"forwarding_note,omitempty" db:"forwarding_note"`

	// Phone verification OTP (cleared after successful verification)
	OTPCode      *string    `json:"-" db:"otp_code"`
	OTPExpiresAt *time.Time `json:"-" db:"otp_expires_at"`
	OTPVerified  bool       `json:"otp_verified" db:"otp_verified"`

	IsWalkIn  bool      `json:"is_walk_in" db:"is_walk_in"`
	CreatedBy *string   `json:"created_by,omitempty" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// RegisterVisitorRequest represents the self-registration request
type RegisterVisitorRequest struct {
	Name            string  `json:"name" binding:"required"`
	Phone           *string `json:"phone,omitempty"`
	PhotoURL        *string `json:"photo_url,omitempty"`
	IDCardType      *string `json:"id_card_type,omitempty"`
	IDCardNumber    *string `json:"id_card_number,omitempty"`
	IDCardImageURL  *string `json:"id_card_image_url,omitempty"`
	Purpose         string  `json:"purpose" binding:"required"`
	HostResidentID  string  `json:"host_resident_id" binding:"required"`
	VehicleNumber   *string `json:"vehicle_number,omitempty"`
	NumberOfPersons int     `json:"number_of_persons"`
}

// ManualEntryRequest represents a guard-entered walk-in visitor
type ManualEntryRequest struct {
	Name            string  `json:"name" binding:"required"`
	Phone           *string `json:"phone,omitempty"`
	IDCardType      *string `json:"id_card_type,omitempty"`
	IDCardNumber    *string `json:"id_card_number,omitempty"`
	IDCardImageURL  *string `json:"id_card_image_url,omitempty"`
	Purpose         string  `json:"purpose" binding:"required"`
	HostResidentID  string  `json:"host_resident_id" binding:"required"`
	VehicleNumber   *string `json:"vehicle_number,omitempty"`
	NumberOfPersons int     `json:"number_of_persons"`
}

// ApproveVisitorRequest identifies the visitor to approve
type ApproveVisitorRequest struct {
	VisitorID string `json:"visitor_id" binding:"required"`
}

// RejectVisitorRequest identifies the visitor to reject with an optional reason
type RejectVisitorRequest struct {
	VisitorID string  `json:"visitor_id" binding:"required"`
	Reason    *string `json:"reason,omitempty"`
}

// ForwardVisitorRequest reassigns a pending visitor to another resident
type ForwardVisitorRequest struct {
	VisitorID           string  `json:"visitor_id" binding:"required"`
	ForwardToResidentID string  `json:"forward_to_resident_id" binding:"required"`
	Note                *string `json:"note,omitempty"`
}

// CheckInVisitorRequest identifies the visitor to check in at the gate
type CheckInVisitorRequest struct {
	VisitorID string `json:"visitor_id" binding:"required"`
}

// MarkExitRequest identifies the checked-in visitor the host reports as left
type MarkExitRequest struct {
	VisitorID string `json:"visitor_id" binding:"required"`
}

// VerifyVisitorOTPRequest verifies the phone supplied during registration
type VerifyVisitorOTPRequest struct {
	VisitorID string `json:"visitor_id" binding:"required"`
	OTP       string `json:"otp" binding:"required"`
}

// Validate validates the registration request beyond binding tags.
// A visitor must be identifiable by a phone number or an ID card image.
func (r *RegisterVisitorRequest) Validate() error {
	if err := validateIdentification(r.Phone, r.IDCardImageURL); err != nil {
		return err
	}
	if r.IDCardType != nil && !isValidIDCardType(*r.IDCardType) {
		return errors.New("id_card_type must be one of: nic, passport, driving_license")
	}
	if r.NumberOfPersons < 0 {
		return errors.New("number_of_persons cannot be negative")
	}
	if r.NumberOfPersons > 20 {
		return errors.New("maximum 20 persons per visit")
	}
	return nil
}

// Validate validates the walk-in entry request beyond binding tags
func (r *ManualEntryRequest) Validate() error {
	if err := validateIdentification(r.Phone, r.IDCardImageURL); err != nil {
		return err
	}
	if r.IDCardType != nil && !isValidIDCardType(*r.IDCardType) {
		return errors.New("id_card_type must be one of: nic, passport, driving_license")
	}
	if r.NumberOfPersons < 0 {
		return errors.New("number_of_persons cannot be negative")
	}
	return nil
}

func validateIdentification(phone, idCardImageURL *string) error {
	hasPhone := phone != nil && strings.TrimSpace(*phone) != ""
	hasIDCard := idCardImageURL != nil && strings.TrimSpace(*idCardImageURL) != ""
	if !hasPhone && !hasIDCard {
		return errors.New("either phone or id_card_image_url is required")
	}
	return nil
}

func isValidIDCardType(t string) bool {
	switch IDCardType(t) {
	case IDCardTypeNIC, IDCardTypePassport, IDCardTypeDrivingLicense:
		return true
	}
	return false
}

// CanApprove checks if the visitor can be approved
func (v *Visitor) CanApprove() bool {
	return v.Status == VisitorStatusPending
}

// CanReject checks if the visitor can be rejected
func (v *Visitor) CanReject() bool {
	return v.Status == VisitorStatusPending
}

// CanForward checks if the visitor can be forwarded to another resident
func (v *Visitor) CanForward() bool {
	return v.Status == VisitorStatusPending
}

// CanCheckIn checks if the visitor can be checked in at the gate
func (v *Visitor) CanCheckIn() bool {
	return v.Status == VisitorStatusApproved
}

// CanMarkExit checks if the host can mark the visitor as left
func (v *Visitor) CanMarkExit() bool {
	return v.Status == VisitorStatusCheckedIn
}

// IsHostedBy checks if the given resident currently hosts this visitor
func (v *Visitor) IsHostedBy(residentID string) bool {
	return v.HostResidentID == residentID
}

// HasVerifiedIdentity reports whether the visitor has a verified phone or an ID card image
func (v *Visitor) HasVerifiedIdentity() bool {
	if v.PhoneVerified && v.Phone != nil {
		return true
	}
	return v.IDCardImageURL != nil && *v.IDCardImageURL != ""
}
