package server

import "time"

// Category is a product category row.
type Category struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:200;not null;uniqueIndex" json:"name"`
	Description string `gorm:"size:500" json:"description"`
}

// TableName implements gorm's tabler.
func (Category) TableName() string { return "product_categories" }

// Invoice is a saved invoice header. MerchantName mirrors SupplierName for
// invoices saved through /ocr-invoices and holds the store name of receipts.
type Invoice struct {
	ID            uint   `gorm:"primaryKey"`
	InvoiceNumber string `gorm:"size:100;index"`
	MerchantName  string `gorm:"size:500"`
	SupplierName  string `gorm:"size:500"`
	Date          string `gorm:"size:100"`
	TotalAmount   int64
	VATRate       int64
	VATAmount     int64
	RawText       string `gorm:"type:text"`
	CreatedAt     time.Time

	Items []InvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
}

// TableName implements gorm's tabler.
func (Invoice) TableName() string { return "invoices" }

// InvoiceItem is one product row. Price and Total both hold the line total.
type InvoiceItem struct {
	ID          uint   `gorm:"primaryKey"`
	InvoiceID   uint   `gorm:"index"`
	CategoryID  *uint  `gorm:"index"`
	Name        string `gorm:"size:500"`
	ProductName string `gorm:"size:500"`
	Quantity    int64
	UnitPrice   int64
	Price       int64
	Total       int64

	Invoice  *Invoice  `gorm:"foreignKey:InvoiceID"`
	Category *Category `gorm:"foreignKey:CategoryID"`
}

// TableName implements gorm's tabler.
func (InvoiceItem) TableName() string { return "invoice_items" }

// DefaultCategories are seeded into an empty category table.
var DefaultCategories = []Category{
	{Name: "Thực phẩm & Đồ uống", Description: "Thực phẩm, đồ uống, nước giải khát"},
	{Name: "Văn phòng phẩm", Description: "Giấy, bút, dụng cụ văn phòng"},
	{Name: "Điện tử & Công nghệ", Description: "Máy tính, điện thoại, thiết bị điện tử"},
	{Name: "Vật liệu xây dựng", Description: "Xi măng, gạch, sắt thép, vật liệu xây dựng"},
	{Name: "Nội thất & Trang trí", Description: "Bàn ghế, tủ, đồ trang trí nội thất"},
	{Name: "Quần áo & Thời trang", Description: "Quần áo, giày dép, phụ kiện"},
	{Name: "Mỹ phẩm & Chăm sóc sức khỏe", Description: "Mỹ phẩm, thuốc, sản phẩm chăm sóc"},
	{Name: "Gia dụng & Đồ dùng nhà bếp", Description: "Đồ dùng nhà bếp, thiết bị gia dụng"},
	{Name: "Xăng dầu & Nhiên liệu", Description: "Xăng, dầu, nhiên liệu"},
	{Name: "Dịch vụ & Bảo trì", Description: "Dịch vụ sửa chữa, bảo trì, bảo dưỡng"},
	{Name: "Vận chuyển & Logistics", Description: "Phí vận chuyển, giao hàng"},
	{Name: "Marketing & Quảng cáo", Description: "Chi phí quảng cáo, marketing"},
	{Name: "Điện nước & Tiện ích", Description: "Tiền điện, nước, internet, điện thoại"},
	{Name: "Thuê mướn & Cho thuê", Description: "Tiền thuê văn phòng, kho bãi, thiết bị"},
	{Name: "Đào tạo & Phát triển", Description: "Khóa học, đào tạo nhân viên"},
	{Name: "Y tế & Bảo hiểm", Description: "Khám chữa bệnh, bảo hiểm"},
	{Name: "Ngân hàng & Tài chính", Description: "Phí ngân hàng, lãi vay"},
	{Name: "Pháp lý & Tư vấn", Description: "Phí tư vấn pháp lý, kế toán"},
	{Name: "Giải trí & Sự kiện", Description: "Tiệc, sự kiện, giải trí"},
	{Name: "Khác", Description: "Các chi phí khác không thuộc danh mục trên"},
}
