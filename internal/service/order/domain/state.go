// internal/service/order/domain/state.go
package domain

// State 定义了订单的生命周期状态。
type State string

const (
	// StatePendingReservation 订单已受理，库存预留进行中
	StatePendingReservation State = "PENDING_RESERVATION"
	// StateConfirmed 所有行预留成功且订单已落库
	StateConfirmed State = "CONFIRMED"
	// StateFailed 订单被拒绝或流程失败，预留已补偿
	StateFailed State = "FAILED"
)
