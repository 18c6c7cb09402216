package exchange

// Order sheet headers.
const (
	colOrderID     = "訂單編號"
	colDate        = "日期"
	colName        = "姓名"
	colPhone       = "電話"
	colAddress     = "地址"
	colChannel     = "通路"
	colItems       = "商品項目"
	colAmount      = "金額"
	colShippingFee = "運費"
	colLogistics   = "物流"
	colArrivalDate = "到貨日期"
	colAfterSales  = "售後關懷"
	colRemarks     = "備註"

	// accepted on import for sheets exported by older versions
	colLegacyProduct    = "商品名稱"
	colLegacyQuantity   = "數量"
	colLegacyAmount     = "銷售金額"
	colLegacyAfterSales = "售後關懷(+D5)"
)

// Customer sheet headers.
const (
	colSymptoms      = "症狀"
	colSocialName    = "社群名稱"
	colContactMethod = "聯絡方式"
	colOrderCount    = "訂單總數"
	colCreatedAt     = "建立日期"
)

var orderHeaders = []string{
	colOrderID, colDate, colName, colPhone, colAddress, colChannel, colItems,
	colAmount, colShippingFee, colLogistics, colArrivalDate, colAfterSales, colRemarks,
}

var customerHeaders = []string{
	colName, colPhone, colAddress, colSymptoms, colSocialName, colContactMethod, colOrderCount, colCreatedAt,
}
