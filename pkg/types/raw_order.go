package types

// RawOrder is an order as returned by the order source API.
// Only OrderHash, EncodedOrder and Signature are authoritative; the
// remaining fields are informational and never used for amounts.
type RawOrder struct {
	Type         OrderType        `json:"type"`
	OrderStatus  OrderStatus      `json:"orderStatus"`
	Signature    string           `json:"signature"`
	EncodedOrder string           `json:"encodedOrder"`
	ChainID      int64            `json:"chainId"`
	Nonce        string           `json:"nonce"`
	TxHash       string           `json:"txHash,omitempty"`
	OrderHash    string           `json:"orderHash"`
	Swapper      string           `json:"swapper"`
	Input        RawInput         `json:"input"`
	Outputs      []RawOutput      `json:"outputs"`
	CosignerData *RawCosignerData `json:"cosignerData,omitempty"`
	Cosignature  string           `json:"cosignature,omitempty"`
	QuoteID      string           `json:"quoteId,omitempty"`
	RequestID    string           `json:"requestId,omitempty"`
	CreatedAt    int64            `json:"createdAt"`
}

// RawInput is the informational input leg of a RawOrder.
type RawInput struct {
	Token       string `json:"token"`
	StartAmount string `json:"startAmount"`
	EndAmount   string `json:"endAmount"`
}

// RawOutput is the informational output leg of a RawOrder.
type RawOutput struct {
	Token       string `json:"token"`
	StartAmount string `json:"startAmount"`
	EndAmount   string `json:"endAmount"`
	Recipient   string `json:"recipient"`
}

// RawCosignerData carries the cosigner parameters as reported by the API.
type RawCosignerData struct {
	DecayStartTime  int64    `json:"decayStartTime"`
	DecayEndTime    int64    `json:"decayEndTime"`
	ExclusiveFiller string   `json:"exclusiveFiller"`
	InputOverride   string   `json:"inputOverride"`
	OutputOverrides []string `json:"outputOverrides"`
}

// OrdersResponse is the envelope of the order source list endpoint.
type OrdersResponse struct {
	Orders []RawOrder `json:"orders"`
	Cursor string     `json:"cursor,omitempty"`
}
