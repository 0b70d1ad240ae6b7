package ids

import (
	"strconv"
	"sync"
	"time"
)

// 2024-01-01 UTC
const epochMS int64 = 1704067200000

const (
	nodeBits = 10
	seqBits  = 12
	maxNode  = 1<<nodeBits - 1
	seqMask  = 1<<seqBits - 1
)

// Node 雪花ID生成器：41位毫秒 | 10位节点 | 12位序列
type Node struct {
	mu       sync.Mutex
	nodeID   int64
	seq      int64
	lastTSMS int64
	now      func() time.Time
}

func NewNode(nodeID int64) *Node {
	if nodeID < 0 || nodeID > maxNode {
		nodeID = 1
	}
	return &Node{nodeID: nodeID, now: time.Now}
}

var defaultNode = NewNode(1)

// SetNodeID 设置默认生成器的 nodeID（0~1023），在 main() 初始化时调用
func SetNodeID(nodeID int64) {
	defaultNode = NewNode(nodeID)
}

func Generate() int64 { return defaultNode.Generate() }

func GenerateString() string { return defaultNode.GenerateString() }

func (n *Node) GenerateString() string {
	return strconv.FormatInt(n.Generate(), 10)
}

func (n *Node) Generate() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := n.now().UnixMilli()
	if now < n.lastTSMS {
		// 时钟回拨：沿用上次时间戳继续递增序列
		now = n.lastTSMS
	}
	if now == n.lastTSMS {
		n.seq = (n.seq + 1) & seqMask
		if n.seq == 0 {
			for now <= n.lastTSMS {
				now = n.now().UnixMilli()
			}
		}
	} else {
		n.seq = 0
	}
	n.lastTSMS = now

	ts := (now - epochMS) & (1<<41 - 1)
	return ts<<(nodeBits+seqBits) | n.nodeID<<seqBits | n.seq
}
