package ingress

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/codearena/judge-api/internal/types"
)

const uuidPattern = `^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`

var ackSchema = jsonschema.MustCompileString("ack.json", `{
	"type": "object",
	"required": ["type", "id", "judger_id"],
	"properties": {
		"type": {"const": "ack"},
		"id": {"type": "string", "pattern": "`+uuidPattern+`"},
		"judger_id": {"type": "string", "minLength": 1}
	}
}`)

var resultSchema = jsonschema.MustCompileString("result.json", `{
	"type": "object",
	"required": ["type", "id", "judger_id", "status"],
	"properties": {
		"type": {"const": "result"},
		"id": {"type": "string", "pattern": "`+uuidPattern+`"},
		"judger_id": {"type": "string", "minLength": 1},
		"log": {"type": "string"},
		"status": {"enum": ["OK", "CE", "IE"]},
		"test_results": {
			"type": ["array", "null"],
			"items": {
				"type": "object",
				"required": ["slug", "status"],
				"properties": {
					"slug": {"type": "string", "minLength": 1},
					"status": {"enum": ["AC", "WA", "RTE", "TLE", "MLE"]},
					"time": {"type": "number", "minimum": 0},
					"memory": {"type": "number", "minimum": 0}
				}
			}
		}
	}
}`)

var heartbeatSchema = jsonschema.MustCompileString("heartbeat.json", `{
	"type": "object",
	"required": ["type", "judger_id", "timestamp"],
	"properties": {
		"type": {"const": "heartbeat"},
		"judger_id": {"type": "string", "minLength": 1},
		"timestamp": {"type": "integer", "minimum": 0}
	}
}`)

var schemas = map[types.MsgType]*jsonschema.Schema{
	types.MsgTypeAck:       ackSchema,
	types.MsgTypeResult:    resultSchema,
	types.MsgTypeHeartbeat: heartbeatSchema,
}

// Checks a raw message against the schema of its kind
func validateSchema(msgType types.MsgType, message []byte) error {
	schema, ok := schemas[msgType]
	if !ok {
		return fmt.Errorf("no schema for message type %q", msgType)
	}

	var doc any
	if err := json.Unmarshal(message, &doc); err != nil {
		return err
	}

	err := schema.Validate(doc)
	if validationErr, ok := err.(*jsonschema.ValidationError); ok {
		errs := validationErr.BasicOutput().Errors
		fields := make([]string, 0, len(errs))
		for _, e := range errs {
			if e.Error == "" {
				continue
			}
			fields = append(fields, fmt.Sprintf("%s: %s", e.InstanceLocation, e.Error))
		}
		return fmt.Errorf("message does not match %s schema: %s", msgType, strings.Join(fields, "; "))
	}

	return err
}
