package repository

import (
	"errors"

	"github.com/upi-next/internal/constants"
)

var (
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("record not found")
	// ErrStatusConflict 违反单向状态推进约束的写入
	ErrStatusConflict = errors.New("status transition conflict")
)

// statusTransition 校验状态推进是否合法。
// 返回 applied=false 且 err=nil 表示幂等重复写入终态，应当跳过更新。
func statusTransition(current, next string) (applied bool, err error) {
	nextRank, ok := constants.PaymentStatusRank[next]
	if !ok {
		return false, ErrStatusConflict
	}
	currentRank, ok := constants.PaymentStatusRank[current]
	if !ok {
		return false, ErrStatusConflict
	}
	if constants.IsTerminalPaymentStatus(current) {
		if next == current {
			return false, nil
		}
		return false, ErrStatusConflict
	}
	if nextRank <= currentRank {
		return false, ErrStatusConflict
	}
	return true, nil
}
