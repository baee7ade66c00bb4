package payments

// PushRequest asks the provider to prompt the customer's phone for payment.
// Amount is whole shillings.
type PushRequest struct {
	Amount      int64
	PhoneNumber string
	Reference   string
	Description string
}

// PushResponse carries the provider's handle for the pending transaction.
// ProviderRef is what the asynchronous callback will quote back.
type PushResponse struct {
	ProviderRef     string
	CustomerMessage string
}

// VerifyResponse is the provider's view of a transaction when we poll.
type VerifyResponse struct {
	Success  bool
	State    string
	Terminal bool
	Raw      map[string]any
}

// CallbackResult is the normalized outcome of a provider callback.
type CallbackResult struct {
	ProviderRef string
	Success     bool
	ResultCode  int
	ResultDesc  string
	Amount      int64
	ReceiptNo   string
	PhoneNumber string
}
