package handlers

import (
	"time"

	"github.com/tbourn/go-parts-market/internal/domain"
)

// RequestView is the public shape of a part request. Phone is present only
// for the buyer and the seller of the accepted offer.
type RequestView struct {
	ID             string               `json:"id"                 example:"4b1f7f1c-8d0e-4a57-9a43-0b8f1f6ad6a1"`
	BuyerID        string               `json:"buyer_id"           example:"buyer-42"`
	VehicleMake    string               `json:"vehicle_make"       example:"Toyota"`
	VehicleModel   string               `json:"vehicle_model"      example:"Corolla"`
	VehicleYear    int                  `json:"vehicle_year"       example:"2012"`
	PartNeeded     string               `json:"part_needed"        example:"alternator"`
	Location       string               `json:"location"           example:"Accra"`
	Phone          string               `json:"phone,omitempty"    example:"+233200000000"`
	Status         domain.RequestStatus `json:"status"             example:"pending"`
	MatchedOfferID *string              `json:"matched_offer_id,omitempty"`
	CompletedBy    *string              `json:"completed_by,omitempty"`
	CompletedAt    *time.Time           `json:"completed_at,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

func requestView(r *domain.PartRequest, showPhone bool) RequestView {
	v := RequestView{
		ID:             r.ID,
		BuyerID:        r.BuyerID,
		VehicleMake:    r.VehicleMake,
		VehicleModel:   r.VehicleModel,
		VehicleYear:    r.VehicleYear,
		PartNeeded:     r.PartNeeded,
		Location:       r.Location,
		Status:         r.Status,
		MatchedOfferID: r.MatchedOfferID,
		CompletedBy:    r.CompletedBy,
		CompletedAt:    r.CompletedAt,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if showPhone {
		v.Phone = r.Phone
	}
	return v
}

// OfferView is the public shape of an offer. Contact fields are absent
// unless the viewer is the offer's seller, or the request's buyer after the
// contact was unlocked.
type OfferView struct {
	ID              string             `json:"id"`
	RequestID       string             `json:"request_id"`
	SellerID        string             `json:"seller_id"         example:"seller-7"`
	Price           float64            `json:"price"             example:"90"`
	Currency        string             `json:"currency"          example:"GHS"`
	Message         string             `json:"message"           example:"Used, tested, 3 months warranty"`
	Status          domain.OfferStatus `json:"status"            example:"pending"`
	ContactUnlocked bool               `json:"contact_unlocked"`
	ContactPhone    string             `json:"contact_phone,omitempty"    example:"+233240000000"`
	ContactLocation string             `json:"contact_location,omitempty" example:"Kumasi, Suame Magazine"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// canSeeContact applies the contact gate for viewerID on offer o of a
// request bought by buyerID.
func canSeeContact(o *domain.Offer, buyerID, viewerID string) bool {
	if viewerID == "" {
		return false
	}
	if viewerID == o.SellerID {
		return true
	}
	return viewerID == buyerID && o.ContactUnlocked
}

func offerView(o *domain.Offer, buyerID, viewerID string) OfferView {
	v := OfferView{
		ID:              o.ID,
		RequestID:       o.RequestID,
		SellerID:        o.SellerID,
		Price:           o.Price,
		Currency:        o.Currency,
		Message:         o.Message,
		Status:          o.Status,
		ContactUnlocked: o.ContactUnlocked,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	if canSeeContact(o, buyerID, viewerID) {
		v.ContactPhone = o.ContactPhone
		v.ContactLocation = o.ContactLocation
	}
	return v
}

// UnlockView is the public shape of an unlock transaction.
type UnlockView struct {
	TransactionID      string              `json:"transaction_id"`
	OfferID            string              `json:"offer_id"`
	Status             domain.UnlockStatus `json:"status"               example:"initiated"`
	Amount             float64             `json:"amount"               example:"5"`
	Currency           string              `json:"currency"             example:"GHS"`
	ProviderHandoffRef string              `json:"provider_handoff_ref" example:"unl-V1StGXR8Z5jdHi6BmyTa"`
	CheckoutURL        string              `json:"checkout_url,omitempty"`
	FailureReason      string              `json:"failure_reason,omitempty"`
	ConfirmedAt        *time.Time          `json:"confirmed_at,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
}

func unlockView(u *domain.UnlockTransaction) UnlockView {
	return UnlockView{
		TransactionID:      u.ID,
		OfferID:            u.OfferID,
		Status:             u.Status,
		Amount:             u.Amount,
		Currency:           u.Currency,
		ProviderHandoffRef: u.HandoffRef,
		CheckoutURL:        u.CheckoutURL,
		FailureReason:      u.FailureReason,
		ConfirmedAt:        u.ConfirmedAt,
		CreatedAt:          u.CreatedAt,
	}
}
