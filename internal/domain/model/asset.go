package model

// SaleState is the item state written to the ticketing system. The sync
// flow only ever moves records toward Sold.
type SaleState string

// SaleStateSold is the only state this program writes.
const SaleStateSold SaleState = "Sold"

// AssetSale describes a sale to record against a single asset tag.
// Price and SiblingTags are independently optional: an empty Price is
// omitted from the outgoing record, and an empty SiblingTags slice means
// the item was not sold as part of a bundle.
type AssetSale struct {
	AssetTag    string
	Price       string
	SiblingTags []string
}

// Bundle reports whether the sale spans multiple asset tags.
func (s AssetSale) Bundle() bool {
	return len(s.SiblingTags) > 0
}
