package oneinch

// QuoteRequest asks for the best aggregated swap route.
type QuoteRequest struct {
	Src    string // source token address
	Dst    string // destination token address
	Amount string // raw integer in the source token's smallest unit
}

// QuoteResponse is the aggregator's estimate for a swap. DstAmount is kept
// as the raw integer string the API returns; callers scale it by the
// destination token's decimals for display.
type QuoteResponse struct {
	DstAmount string          `json:"dstAmount"`
	Gas       int64           `json:"gas,omitempty"`
	Protocols [][][]RouteStep `json:"protocols,omitempty"`
}

// RouteStep is one hop of the aggregated route.
type RouteStep struct {
	Name             string  `json:"name"`
	Part             float64 `json:"part"`
	FromTokenAddress string  `json:"fromTokenAddress"`
	ToTokenAddress   string  `json:"toTokenAddress"`
}

// RouteNames flattens the nested protocol plan into the distinct DEX names
// it touches, in route order.
func (q *QuoteResponse) RouteNames() []string {
	seen := make(map[string]bool)
	var out []string
	for _, path := range q.Protocols {
		for _, split := range path {
			for _, step := range split {
				if step.Name == "" || seen[step.Name] {
					continue
				}
				seen[step.Name] = true
				out = append(out, step.Name)
			}
		}
	}
	return out
}
