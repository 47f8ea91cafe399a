// Package domain defines the persistence models for part requests, offers,
// contact-unlock transactions, ratings, and chat threads. These types are
// mapped with GORM and form the core data layer of the marketplace.
//
// Status fields are closed enumerations (see status.go); the database
// enforces the same sets through CHECK constraints.
package domain

import (
	"time"
)

// PartRequest is a buyer's posted need for a specific car part.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - BuyerID: identifier of the requesting buyer; indexed.
//   - VehicleMake / VehicleModel / VehicleYear: the vehicle the part is for.
//   - PartNeeded: free-form description of the part.
//   - Location: coarse location, visible to sellers.
//   - Phone: buyer's phone; only exposed to the buyer and the matched seller.
//   - Status: pending → matched → completed, or pending/matched → cancelled.
//   - MatchedOfferID: the accepted offer while the request is matched/completed.
//   - CompletedBy / CompletedAt: who completed the request and when.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type PartRequest struct {
	ID             string        `json:"id"               gorm:"type:char(36);primaryKey"`
	BuyerID        string        `json:"buyer_id"         gorm:"type:varchar(64);not null;index:idx_requests_buyer,priority:1"`
	VehicleMake    string        `json:"vehicle_make"     gorm:"type:varchar(64);not null"`
	VehicleModel   string        `json:"vehicle_model"    gorm:"type:varchar(64);not null"`
	VehicleYear    int           `json:"vehicle_year"     gorm:"not null"`
	PartNeeded     string        `json:"part_needed"      gorm:"type:varchar(255);not null"`
	Location       string        `json:"location"         gorm:"type:varchar(255);not null;default:''"`
	Phone          string        `json:"-"                gorm:"type:varchar(32);not null;default:''"`
	Status         RequestStatus `json:"status"           gorm:"type:varchar(16);not null;default:'pending';index:idx_requests_status;check:status IN ('pending','matched','completed','cancelled')"`
	MatchedOfferID *string       `json:"matched_offer_id,omitempty" gorm:"type:char(36)"`
	CompletedBy    *string       `json:"completed_by,omitempty"     gorm:"type:varchar(64)"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at"       gorm:"index:idx_requests_buyer,priority:2"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// TableName returns the database table name for PartRequest.
func (PartRequest) TableName() string { return "part_requests" }

// Offer is a seller's priced response to a request.
//
// Status, and ContactUnlocked, are the only mutable fields. Price, message,
// and seller contact details are write-once at submission.
//
// At most one offer per request may be accepted; this is enforced by the
// partial unique index ux_offers_one_accepted in addition to the guarded
// transition in the service layer.
type Offer struct {
	ID              string      `json:"id"          gorm:"type:char(36);primaryKey"`
	RequestID       string      `json:"request_id"  gorm:"type:char(36);not null;index:idx_offers_request;uniqueIndex:ux_offers_one_accepted,where:status = 'accepted'"`
	SellerID        string      `json:"seller_id"   gorm:"type:varchar(64);not null;index"`
	Price           float64     `json:"price"       gorm:"not null;check:price > 0"`
	Currency        string      `json:"currency"    gorm:"type:varchar(3);not null"`
	Message         string      `json:"message"     gorm:"type:text;not null;default:''"`
	ContactPhone    string      `json:"-"           gorm:"type:varchar(32);not null;default:''"`
	ContactLocation string      `json:"-"           gorm:"type:varchar(255);not null;default:''"`
	Status          OfferStatus `json:"status"      gorm:"type:varchar(16);not null;default:'pending';check:status IN ('pending','accepted','rejected')"`
	ContactUnlocked bool        `json:"contact_unlocked" gorm:"not null;default:false"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`

	// Request is the parent request. Requests are never deleted while offers
	// reference them.
	Request PartRequest `json:"-" gorm:"foreignKey:RequestID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName returns the database table name for Offer.
func (Offer) TableName() string { return "offers" }

// UnlockTransaction records one attempt to pay the contact-unlock fee for an
// offer. It is created on initiation and finalized by the payment provider's
// server-to-server callback.
//
// HandoffRef is the opaque reference handed to the provider; the provider
// echoes it back on confirmation. ProviderRef is the provider's own id for
// the charge, recorded on confirmation.
type UnlockTransaction struct {
	ID            string       `json:"id"            gorm:"type:char(36);primaryKey"`
	OfferID       string       `json:"offer_id"      gorm:"type:char(36);not null;index"`
	PayerID       string       `json:"payer_id"      gorm:"type:varchar(64);not null;index"`
	Amount        float64      `json:"amount"        gorm:"not null;check:amount > 0"`
	Currency      string       `json:"currency"      gorm:"type:varchar(3);not null"`
	HandoffRef    string       `json:"provider_handoff_ref" gorm:"type:varchar(32);not null;uniqueIndex"`
	CheckoutURL   string       `json:"checkout_url,omitempty" gorm:"type:text;not null;default:''"`
	ProviderRef   *string      `json:"provider_ref,omitempty" gorm:"type:varchar(128)"`
	Status        UnlockStatus `json:"status"        gorm:"type:varchar(16);not null;default:'initiated';check:status IN ('initiated','confirmed','failed')"`
	FailureReason string       `json:"failure_reason,omitempty" gorm:"type:varchar(255);not null;default:''"`
	ConfirmedAt   *time.Time   `json:"confirmed_at,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`

	Offer Offer `json:"-" gorm:"foreignKey:OfferID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName returns the database table name for UnlockTransaction.
func (UnlockTransaction) TableName() string { return "unlock_transactions" }

// Rating is a buyer's score for the seller of a completed offer. A rating is
// immutable once created and unique per offer.
type Rating struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	OfferID   string    `json:"offer_id"   gorm:"type:char(36);not null;uniqueIndex:ux_ratings_offer"`
	RequestID string    `json:"request_id" gorm:"type:char(36);not null;index"`
	RaterID   string    `json:"rater_id"   gorm:"type:varchar(64);not null;index"`
	SellerID  string    `json:"seller_id"  gorm:"type:varchar(64);not null;index"`
	Score     int       `json:"score"      gorm:"not null;check:score BETWEEN 1 AND 5"`
	Comment   string    `json:"comment"    gorm:"type:text;not null;default:''"`
	CreatedAt time.Time `json:"created_at"`

	Offer Offer `json:"-" gorm:"foreignKey:OfferID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName returns the database table name for Rating.
func (Rating) TableName() string { return "ratings" }

// ChatThread identifies a conversation between a buyer and a seller,
// optionally about a specific part. PartKey mirrors PartID with "" for the
// null case so the unique index also covers threads without a part.
type ChatThread struct {
	ID        string    `json:"id"        gorm:"type:char(36);primaryKey"`
	BuyerID   string    `json:"buyer_id"  gorm:"type:varchar(64);not null;uniqueIndex:ux_chat_thread_key,priority:1"`
	SellerID  string    `json:"seller_id" gorm:"type:varchar(64);not null;uniqueIndex:ux_chat_thread_key,priority:2"`
	PartID    *string   `json:"part_id"   gorm:"type:varchar(64)"`
	PartKey   string    `json:"-"         gorm:"type:varchar(64);not null;default:'';uniqueIndex:ux_chat_thread_key,priority:3"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for ChatThread.
func (ChatThread) TableName() string { return "chat_threads" }

// AuditEntry records a single lifecycle transition together with the actor
// that caused it. Admin transitions carry ActorRole "admin".
type AuditEntry struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	ActorID     string    `json:"actor_id"     gorm:"type:varchar(64);not null;index"`
	ActorRole   string    `json:"actor_role"   gorm:"type:varchar(16);not null"`
	Action      string    `json:"action"       gorm:"type:varchar(32);not null"`
	SubjectType string    `json:"subject_type" gorm:"type:varchar(32);not null;index:idx_audit_subject,priority:1"`
	SubjectID   string    `json:"subject_id"   gorm:"type:char(36);not null;index:idx_audit_subject,priority:2"`
	FromStatus  string    `json:"from_status"  gorm:"type:varchar(16);not null;default:''"`
	ToStatus    string    `json:"to_status"    gorm:"type:varchar(16);not null;default:''"`
	Detail      string    `json:"detail,omitempty" gorm:"type:text;not null;default:''"`
	CreatedAt   time.Time `json:"created_at"   gorm:"index:idx_audit_subject,priority:3"`
}

// TableName returns the database table name for AuditEntry.
func (AuditEntry) TableName() string { return "audit_entries" }
