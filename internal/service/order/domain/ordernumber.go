// internal/service/order/domain/ordernumber.go
package domain

import (
	"encoding/binary"
	"time"

	"github.com/google/uuid"
)

// Crockford Base32，去掉了易混淆的 I L O U。
const orderNumberAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// NewOrderNumber 生成形如 ORD-20260828-7F3KQ9ZJ2M 的订单号。
// 随机部分取自 UUIDv4 的 64 位熵编码成 10 个字符（约 50 位），
// 碰撞概率可以忽略；数据库层仍然有唯一索引兜底。
func NewOrderNumber(now time.Time) string {
	id := uuid.New()
	n := binary.BigEndian.Uint64(id[:8])

	suffix := make([]byte, 10)
	for i := 9; i >= 0; i-- {
		suffix[i] = orderNumberAlphabet[n&31]
		n >>= 5
	}
	return "ORD-" + now.Format("20060102") + "-" + string(suffix)
}
