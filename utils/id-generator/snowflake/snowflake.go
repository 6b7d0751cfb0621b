package snowflake

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
)

/* ========================================================================
 * Snowflake ID Generator
 * ========================================================================
 * Distributed 64-bit ids for primary keys: 41-bit millisecond timestamp,
 * 10-bit node id, 12-bit sequence. Node id comes from SNOWFLAKE_NODE_ID;
 * multi-instance deployments must assign distinct node ids.
 * ======================================================================== */

const (
	// MaxNodeID is the largest valid node id (10 bits).
	MaxNodeID = 1023
	// EnvNodeID names the environment variable holding the node id.
	EnvNodeID = "SNOWFLAKE_NODE_ID"
)

var (
	globalNode *snowflake.Node
	once       sync.Once
)

// Generator produces snowflake ids for a fixed node.
type Generator struct {
	node *snowflake.Node
}

// NewGenerator creates a generator for nodeID (0-1023). Use the package
// functions unless multiple independent generators are needed in-process.
func NewGenerator(nodeID int64) (*Generator, error) {
	if nodeID < 0 || nodeID > MaxNodeID {
		return nil, &ConfigError{
			Field:   "nodeID",
			Value:   nodeID,
			Message: "nodeID must be between 0 and 1023",
		}
	}

	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, err
	}

	return &Generator{node: node}, nil
}

// Generate returns a new id.
func (g *Generator) Generate() int64 {
	return g.node.Generate().Int64()
}

// GenerateString returns a new id in decimal string form.
func (g *Generator) GenerateString() string {
	return g.node.Generate().String()
}

func initNode() error {
	nodeID, err := getEnvNodeID()
	if err != nil {
		return err
	}

	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return &ConfigError{
			Field:   "nodeID",
			Value:   nodeID,
			Message: err.Error(),
		}
	}

	globalNode = node
	return nil
}

// Generate returns a new id from the process-wide node.
func Generate() int64 {
	once.Do(func() {
		if err := initNode(); err != nil {
			panic(err.Error())
		}
	})

	return globalNode.Generate().Int64()
}

// GenerateString returns a new id in decimal string form.
func GenerateString() string {
	return snowflake.ID(Generate()).String()
}

// Parse splits an id into its millisecond timestamp and node id.
func Parse(id int64) (timestamp int64, nodeID int64) {
	sid := snowflake.ID(id)
	return sid.Time(), sid.Node()
}

func getEnvNodeID() (int64, error) {
	val := os.Getenv(EnvNodeID)
	if val == "" {
		return 0, nil
	}

	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s=%q: invalid integer", EnvNodeID, val)
	}

	if id < 0 || id > MaxNodeID {
		return 0, &ConfigError{
			Field:   EnvNodeID,
			Value:   id,
			Message: "nodeID must be between 0 and 1023",
		}
	}

	return id, nil
}

// ConfigError describes an invalid node configuration.
type ConfigError struct {
	Field   string
	Value   int64
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + "=" + strconv.FormatInt(e.Value, 10) + ": " + e.Message
}
