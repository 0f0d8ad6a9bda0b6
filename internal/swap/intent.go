package swap

// Intent is the structured swap request produced by the upstream intent
// extractor. Every field is independently nullable; the orchestrator only
// acts when all four are present.
type Intent struct {
	SellTokenSymbol *string  `json:"sellTokenSymbol"`
	SellAmount      *float64 `json:"sellAmount"`
	BuyTokenSymbol  *string  `json:"buyTokenSymbol"`
	Chain           *string  `json:"chain"`
}

// MissingFields names the absent fields in a stable order, using the
// user-facing vocabulary of the chat reply.
func (in Intent) MissingFields() []string {
	var missing []string
	if in.SellTokenSymbol == nil {
		missing = append(missing, "sell token")
	}
	if in.BuyTokenSymbol == nil {
		missing = append(missing, "buy token")
	}
	if in.SellAmount == nil {
		missing = append(missing, "sell amount")
	}
	if in.Chain == nil {
		missing = append(missing, "chain")
	}
	return missing
}

// Complete reports whether the intent is actionable.
func (in Intent) Complete() bool {
	return len(in.MissingFields()) == 0
}
