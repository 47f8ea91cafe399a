package domain

import "testing"

func TestRequestStatus_CanTransition(t *testing.T) {
	all := []RequestStatus{RequestPending, RequestMatched, RequestCompleted, RequestCancelled}
	allowed := map[[2]RequestStatus]bool{
		{RequestPending, RequestMatched}:   true,
		{RequestPending, RequestCancelled}: true,
		{RequestMatched, RequestCompleted}: true,
		{RequestMatched, RequestCancelled}: true,
	}
	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]RequestStatus{from, to}]
			if got := from.CanTransition(to); got != want {
				t.Fatalf("%s -> %s: got %v want %v", from, to, got, want)
			}
		}
	}
}

func TestOfferStatus_CanTransition(t *testing.T) {
	cases := []struct {
		from, to OfferStatus
		want     bool
	}{
		{OfferPending, OfferAccepted, true},
		{OfferPending, OfferRejected, true},
		{OfferAccepted, OfferRejected, true},
		{OfferAccepted, OfferPending, false},
		{OfferRejected, OfferPending, false},
		{OfferRejected, OfferAccepted, false},
		{OfferPending, OfferPending, false},
		{OfferStatus("withdrawn"), OfferRejected, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.want {
			t.Fatalf("%s -> %s: got %v want %v", tc.from, tc.to, got, tc.want)
		}
	}
}
