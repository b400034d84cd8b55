// internal/zookeeper/conn.go
package zookeeper

import (
	"strings"
	"time"

	"github.com/go-zookeeper/zk"

	"mercury/internal/pkg/logger"
)

// Conn 是对 *zk.Conn 的薄封装，统一连接参数与日志。
type Conn struct {
	*zk.Conn
}

// Connect 建立到 ZooKeeper 集群的连接，addrs 为逗号分隔的地址列表。
func Connect(addrs string, sessionTimeout time.Duration) (*Conn, error) {
	servers := strings.Split(addrs, ",")
	conn, _, err := zk.Connect(servers, sessionTimeout, zk.WithLogInfo(false))
	if err != nil {
		return nil, err
	}
	logger.Logger.Info().Str("addrs", addrs).Msg("connected to zookeeper")
	return &Conn{Conn: conn}, nil
}
