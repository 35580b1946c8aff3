package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotObject 记录值不是 JSON 对象（null、数组、标量）
var ErrNotObject = errors.New("record is not a json object")

// 外部存储的约定键
const (
	IndexKey     = "content_keys"
	RecordPrefix = "content_"
)

// RecordKey 返回记录在外部存储中的键 content_<id>
func RecordKey(id string) string { return RecordPrefix + id }

// AccessPolicy 访问条件（仅为标签，不做真实校验）
type AccessPolicy string

const (
	AccessPublic      AccessPolicy = "Public"
	AccessNFTHolder   AccessPolicy = "NFT Holder"
	AccessTokenHolder AccessPolicy = "Token Holder"
)

// Valid 是否为三种已知访问条件之一
func (p AccessPolicy) Valid() bool {
	switch p {
	case AccessPublic, AccessNFTHolder, AccessTokenHolder:
		return true
	}
	return false
}

// DefaultCategory 以及建议分类（不强制）
const DefaultCategory = "General"

var SuggestedCategories = []string{"General", "Technology", "Art", "Politics", "Science", "Entertainment"}

// ContentRecord 本地内容列表中的一条记录
type ContentRecord struct {
	ID           string       `json:"id"`
	Payload      string       `json:"encryptedData"`
	PublishedAt  int64        `json:"timestamp"`
	Owner        string       `json:"owner"`
	Category     string       `json:"category"`
	AccessPolicy AccessPolicy `json:"accessCondition"`
}

// StoredContent content_<id> 下持久化的 JSON 对象
type StoredContent struct {
	Data            string       `json:"data"`
	Timestamp       int64        `json:"timestamp"`
	Owner           string       `json:"owner"`
	Category        string       `json:"category"`
	AccessCondition AccessPolicy `json:"accessCondition,omitempty"`
}

// Stored 转换为持久化结构
func (r ContentRecord) Stored() StoredContent {
	return StoredContent{
		Data:            r.Payload,
		Timestamp:       r.PublishedAt,
		Owner:           r.Owner,
		Category:        r.Category,
		AccessCondition: r.AccessPolicy,
	}
}

// Record 将存储值还原为记录；缺失 accessCondition 时按 Public 处理
func (s StoredContent) Record(id string) ContentRecord {
	policy := s.AccessCondition
	if policy == "" {
		policy = AccessPublic
	}
	return ContentRecord{
		ID:           id,
		Payload:      s.Data,
		PublishedAt:  s.Timestamp,
		Owner:        s.Owner,
		Category:     s.Category,
		AccessPolicy: policy,
	}
}

// DecodeRecord 解析 content_<id> 的值；非 JSON 对象视为无法解析
func DecodeRecord(id string, raw []byte) (ContentRecord, error) {
	var s *StoredContent
	if err := json.Unmarshal(raw, &s); err != nil {
		return ContentRecord{}, fmt.Errorf("decode record %s: %w", id, err)
	}
	if s == nil {
		return ContentRecord{}, fmt.Errorf("decode record %s: %w", id, ErrNotObject)
	}
	return s.Record(id), nil
}

// EncodeRecord 序列化为存储值
func EncodeRecord(r ContentRecord) ([]byte, error) {
	return json.Marshal(r.Stored())
}

// DecodeIndex 解析 content_keys 的值，空输入即空索引
func DecodeIndex(raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var keys []string
	if err := json.Unmarshal(raw, &keys); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}
	return keys, nil
}

// EncodeIndex 序列化 id 列表，nil 编码为 []
func EncodeIndex(keys []string) ([]byte, error) {
	if keys == nil {
		keys = []string{}
	}
	return json.Marshal(keys)
}

// AppendIndex 在原始索引值后追加 id，已存在时保持不变；索引无法解析时从空列表开始
func AppendIndex(raw []byte, id string) ([]byte, bool, error) {
	keys, err := DecodeIndex(raw)
	if err != nil {
		keys = nil
	}
	for _, k := range keys {
		if k == id {
			return raw, false, nil
		}
	}
	out, err := EncodeIndex(append(keys, id))
	return out, true, err
}

// Matches 按分类、访问条件、发布者做不区分大小写的子串匹配
func (r ContentRecord) Matches(term string) bool {
	if term == "" {
		return true
	}
	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(r.Category), term) ||
		strings.Contains(strings.ToLower(string(r.AccessPolicy)), term) ||
		strings.Contains(strings.ToLower(r.Owner), term)
}

// Stats 内容统计
type Stats struct {
	Total           int `json:"total"`
	Public          int `json:"public"`
	NFTRestricted   int `json:"nft_restricted"`
	TokenRestricted int `json:"token_restricted"`
}

// CountStats 按访问条件计数
func CountStats(records []ContentRecord) Stats {
	s := Stats{Total: len(records)}
	for _, r := range records {
		switch r.AccessPolicy {
		case AccessPublic:
			s.Public++
		case AccessNFTHolder:
			s.NFTRestricted++
		case AccessTokenHolder:
			s.TokenRestricted++
		}
	}
	return s
}
