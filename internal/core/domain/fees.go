package domain

// Marketplace fee constants, in currency units.
const (
	ListingFee  int64 = 10
	ExpressFee  int64 = 25
	FeaturedFee int64 = 50

	// Success fee: 10% of the ask price, waived at or below this threshold.
	SuccessFeePercent   int64 = 10
	SuccessFeeThreshold int64 = 100
)

// FeeBreakdown itemizes the fees for a listing. Listing, Express and
// Featured are charged to the seller at creation time; Success only at
// successful completion.
type FeeBreakdown struct {
	Listing  int64 `json:"listing"`
	Success  int64 `json:"success"`
	Express  int64 `json:"express"`
	Featured int64 `json:"featured"`
	Total    int64 `json:"total"`
}

// ComputeFees is a pure function of its inputs: identical input, identical
// output, no hidden state.
func ComputeFees(askPrice int64, express, featured bool) FeeBreakdown {
	f := FeeBreakdown{Listing: ListingFee}
	if askPrice > SuccessFeeThreshold {
		f.Success = askPrice * SuccessFeePercent / 100
	}
	if express {
		f.Express = ExpressFee
	}
	if featured {
		f.Featured = FeaturedFee
	}
	f.Total = f.Listing + f.Success + f.Express + f.Featured
	return f
}

// ListingCharge returns the portion of the fees collected up front at
// listing time. The success fee is excluded; it is charged to the seller
// only when the auction settles with a winner.
func (f FeeBreakdown) ListingCharge() int64 {
	return f.Listing + f.Express + f.Featured
}
