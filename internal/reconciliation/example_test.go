package reconciliation_test

import (
	"errors"
	"fmt"

	"invoicedesk/internal/reconciliation"
	"invoicedesk/pkg/models"
)

// Example shows how derived amounts follow line item edits.
func Example() {
	rec := reconciliation.Recompute(models.InvoiceRecord{
		InvoiceNumber: "HD00123",
		VATRate:       10,
		LineItems: []models.LineItem{
			{ProductName: "Máy in HP LaserJet", Quantity: 1, UnitPrice: 12500000, Total: 12500000},
			{ProductName: "Giấy A4", Quantity: 10, UnitPrice: 50000, Total: 500000},
		},
	})
	fmt.Printf("total=%.0f vat=%.0f grand=%.0f\n", rec.TotalAmount, rec.VATAmount, reconciliation.GrandTotal(rec))

	rec, _ = reconciliation.EditLineItem(rec, 1, reconciliation.ItemQuantity, "20")
	fmt.Printf("total=%.0f vat=%.0f\n", rec.TotalAmount, rec.VATAmount)

	rec, _ = reconciliation.EditLineItem(rec, 1, reconciliation.ItemQuantity, "abc")
	fmt.Printf("item=%.0f total=%.0f\n", rec.LineItems[1].Total, rec.TotalAmount)

	// Output:
	// total=13000000 vat=1300000 grand=14300000
	// total=13500000 vat=1350000
	// item=0 total=12500000
}

// ExampleSession demonstrates an editing session with undo.
func ExampleSession() {
	session := reconciliation.NewSession(models.InvoiceRecord{
		InvoiceNumber: "HD00123",
		VATRate:       10,
	})

	_ = session.AddLineItem()
	_ = session.EditLineItem(0, reconciliation.ItemUnitPrice, 50000)
	_ = session.EditLineItem(0, reconciliation.ItemQuantity, 10)
	fmt.Println(session)

	err := session.RemoveLineItem(3)
	fmt.Println(errors.Is(err, reconciliation.ErrIndexOutOfRange))

	session.Undo()
	fmt.Println(session)

	// Output:
	// HD00123: 1 items, total 500000.00, vat 50000.00
	// true
	// HD00123: 1 items, total 50000.00, vat 5000.00
}
