package model

import "time"

// KVEntry SQL 后端中的一条键值（模拟合约存储）
type KVEntry struct {
	Key       string `gorm:"primaryKey;column:store_key;type:varchar(255)"`
	Value     []byte `gorm:"column:store_value"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (KVEntry) TableName() string { return "kv_entries" }
