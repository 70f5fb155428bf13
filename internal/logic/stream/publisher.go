package stream

import (
	"encoding/json"
	"fmt"

	"anchor-explorer-sol/internal/logic/card"
	"anchor-explorer-sol/internal/pkg/mq"
	"anchor-explorer-sol/internal/pkg/utils"
)

// CardMessage 是写入 Kafka 的卡片消息
type CardMessage struct {
	Slot      uint64     `json:"slot"`
	BlockTime int64      `json:"blockTime"`
	Signature string     `json:"signature"`
	ProgramID string     `json:"programId"`
	Card      *card.Card `json:"card"`
}

// BuildCardJobs 每张主指令卡片一条消息，按 program ID 选择分区，签名作为 key
func BuildCardJobs(topic string, partitions int, slot uint64, blockTime int64, cards []*card.Card) ([]*mq.KafkaJob, error) {
	jobs := make([]*mq.KafkaJob, 0, len(cards))
	for _, c := range cards {
		value, err := json.Marshal(&CardMessage{
			Slot:      slot,
			BlockTime: blockTime,
			Signature: c.Signature,
			ProgramID: c.ProgramID.String(),
			Card:      c,
		})
		if err != nil {
			return nil, fmt.Errorf("marshal card %s#%d: %w", c.Signature, c.Index, err)
		}
		jobs = append(jobs, &mq.KafkaJob{
			Topic:     topic,
			Partition: int32(utils.PartitionHashBytes(c.ProgramID[:], uint32(max(partitions, 1)))),
			Key:       []byte(c.Signature),
			Value:     value,
		})
	}
	return jobs, nil
}
