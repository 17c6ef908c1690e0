package utils

import (
	"log"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	idNode *snowflake.Node
	idOnce sync.Once
)

// NextID 生成全局唯一的int64 ID，用于数据库主键
func NextID() int64 {
	idOnce.Do(func() {
		var err error
		idNode, err = snowflake.NewNode(1)
		if err != nil {
			log.Fatalf("failed to create snowflake node: %v", err)
		}
	})
	return idNode.Generate().Int64()
}
