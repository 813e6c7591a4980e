package order

// OrderState implements the state pattern for order lifecycle transitions.
type OrderState interface {
	Status() Status
	Submit(o *Order) (OrderState, error)
	Pay(o *Order) (OrderState, error)
	Ship(o *Order) (OrderState, error)
	Deliver(o *Order) (OrderState, error)
	Cancel(o *Order) (OrderState, error)
}

func stateOf(s Status) OrderState {
	switch s {
	case StatusDraft:
		return draftState{}
	case StatusPendingPayment:
		return pendingPaymentState{}
	case StatusPaid:
		return paidState{}
	case StatusShipped:
		return shippedState{}
	case StatusDelivered:
		return deliveredState{}
	case StatusCancelled:
		return cancelledState{}
	}
	return unknownState{status: s}
}

// rejectAll is embedded by states that refuse every transition unless they override it.
type rejectAll struct{}

func (rejectAll) Submit(*Order) (OrderState, error)  { return nil, ErrInvalidStateTransition }
func (rejectAll) Pay(*Order) (OrderState, error)     { return nil, ErrInvalidStateTransition }
func (rejectAll) Ship(*Order) (OrderState, error)    { return nil, ErrInvalidStateTransition }
func (rejectAll) Deliver(*Order) (OrderState, error) { return nil, ErrInvalidStateTransition }
func (rejectAll) Cancel(*Order) (OrderState, error)  { return nil, ErrInvalidStateTransition }

type draftState struct{ rejectAll }

func (draftState) Status() Status { return StatusDraft }

func (draftState) Submit(*Order) (OrderState, error) { return pendingPaymentState{}, nil }
func (draftState) Cancel(*Order) (OrderState, error) { return cancelledState{}, nil }

type pendingPaymentState struct{ rejectAll }

func (pendingPaymentState) Status() Status { return StatusPendingPayment }

func (pendingPaymentState) Pay(*Order) (OrderState, error)    { return paidState{}, nil }
func (pendingPaymentState) Cancel(*Order) (OrderState, error) { return cancelledState{}, nil }

type paidState struct{ rejectAll }

func (paidState) Status() Status { return StatusPaid }

func (paidState) Pay(*Order) (OrderState, error)    { return nil, ErrAlreadyPaid }
func (paidState) Ship(*Order) (OrderState, error)   { return shippedState{}, nil }
func (paidState) Cancel(*Order) (OrderState, error) { return cancelledState{}, nil }

type shippedState struct{ rejectAll }

func (shippedState) Status() Status { return StatusShipped }

func (shippedState) Pay(*Order) (OrderState, error)     { return nil, ErrAlreadyPaid }
func (shippedState) Deliver(*Order) (OrderState, error) { return deliveredState{}, nil }

type deliveredState struct{ rejectAll }

func (deliveredState) Status() Status { return StatusDelivered }

func (deliveredState) Pay(*Order) (OrderState, error) { return nil, ErrAlreadyPaid }

type cancelledState struct{ rejectAll }

func (cancelledState) Status() Status { return StatusCancelled }

func (cancelledState) Pay(*Order) (OrderState, error) { return nil, ErrCancelled }

type unknownState struct {
	rejectAll
	status Status
}

func (s unknownState) Status() Status { return s.status }
