package repository

import "time"

// PaymentListFilter 查询支付列表的过滤条件
type PaymentListFilter struct {
	Page        int
	PageSize    int
	CustomerID  uint
	OrderID     string
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// SplitListFilter 查询分账列表的过滤条件
type SplitListFilter struct {
	Page      int
	PageSize  int
	SellerID  uint
	PaymentID uint
	Status    string
}

// RefundListFilter 查询退款列表的过滤条件
type RefundListFilter struct {
	Page      int
	PageSize  int
	PaymentID uint
	Status    string
	Initiator string
}

// KycListFilter 查询卖家实名审核列表的过滤条件
type KycListFilter struct {
	Page     int
	PageSize int
	Status   string
	Keyword  string
}

// PayoutListFilter 查询提现打款列表的过滤条件
type PayoutListFilter struct {
	Page        int
	PageSize    int
	SellerID    uint
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}
