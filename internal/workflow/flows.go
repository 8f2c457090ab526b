package workflow

type PrescriptionStatus string

const (
	PrescriptionPending         PrescriptionStatus = "Pending"
	PrescriptionFilled          PrescriptionStatus = "Filled"
	PrescriptionPartiallyFilled PrescriptionStatus = "Partially Filled"
	PrescriptionCancelled       PrescriptionStatus = "Cancelled"
)

type PurchaseStatus string

const (
	PurchasePending   PurchaseStatus = "Pending"
	PurchasePartial   PurchaseStatus = "Partial"
	PurchaseDelivered PurchaseStatus = "Delivered"
	PurchaseCancelled PurchaseStatus = "Cancelled"
)

type SaleStatus string

const (
	SalePending   SaleStatus = "Pending"
	SaleCompleted SaleStatus = "Completed"
	SaleRefunded  SaleStatus = "Refunded"
	SaleCancelled SaleStatus = "Cancelled"
)

var Prescriptions = NewMachine("prescription", PrescriptionPending, map[PrescriptionStatus][]PrescriptionStatus{
	PrescriptionPending:         {PrescriptionFilled, PrescriptionPartiallyFilled, PrescriptionCancelled},
	PrescriptionPartiallyFilled: {PrescriptionFilled, PrescriptionCancelled},
	PrescriptionFilled:          nil,
	PrescriptionCancelled:       nil,
})

// A Partial order may take further partial deliveries before it is Delivered.
var Purchases = NewMachine("purchase", PurchasePending, map[PurchaseStatus][]PurchaseStatus{
	PurchasePending:   {PurchaseDelivered, PurchasePartial, PurchaseCancelled},
	PurchasePartial:   {PurchasePartial, PurchaseDelivered, PurchaseCancelled},
	PurchaseDelivered: nil,
	PurchaseCancelled: nil,
})

var Sales = NewMachine("sale", SaleCompleted, map[SaleStatus][]SaleStatus{
	SalePending:   {SaleCompleted, SaleCancelled},
	SaleCompleted: {SaleRefunded},
	SaleRefunded:  nil,
	SaleCancelled: nil,
})
