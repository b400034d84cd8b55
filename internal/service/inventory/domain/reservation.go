// internal/service/inventory/domain/reservation.go
package domain

import "time"

// ReservationStatus 是预留流水的终态。每个幂等令牌只会有一条流水，
// 重放请求直接返回已记录的结果。
type ReservationStatus string

const (
	// StatusReserved 预留成功，库存已扣减
	StatusReserved ReservationStatus = "RESERVED"
	// StatusRejected 库存不足被拒绝，库存未变动
	StatusRejected ReservationStatus = "REJECTED"
	// StatusReleased 预留已被补偿释放，库存已归还
	StatusReleased ReservationStatus = "RELEASED"
	// StatusCancelled 先收到释放后收到预留的墓碑记录，
	// 它的存在保证迟到的预留重试不会再扣库存
	StatusCancelled ReservationStatus = "CANCELLED"
)

// Reservation 是一条以幂等令牌为主键的预留流水。
type Reservation struct {
	Token     string
	ProductID string
	Quantity  int
	Status    ReservationStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ReserveOutcome 是一次预留请求的处理结果。
type ReserveOutcome string

const (
	OutcomeReserved          ReserveOutcome = "RESERVED"
	OutcomeInsufficientStock ReserveOutcome = "INSUFFICIENT_STOCK"
	OutcomeNotFound          ReserveOutcome = "NOT_FOUND"
	OutcomeCancelled         ReserveOutcome = "CANCELLED"
)

// ReserveResult 除了结果码之外还带回预留后的剩余可用量。
type ReserveResult struct {
	ProductID      string
	Outcome        ReserveOutcome
	RemainingStock int
}

// ReleaseOutcome 是一次释放请求的处理结果。
type ReleaseOutcome string

const (
	// ReleaseDone 预留被找到并归还库存
	ReleaseDone ReleaseOutcome = "RELEASED"
	// ReleaseNoop 令牌未知或已处理过，本次释放未变动库存
	ReleaseNoop ReleaseOutcome = "NOOP"
)
