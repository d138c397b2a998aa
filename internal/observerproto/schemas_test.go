package observerproto_test

import (
	"encoding/json"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"voltfront.ai/internal/observerproto"
	"voltfront.ai/internal/sim/hexgrid"
	"voltfront.ai/internal/sim/power"
)

const turnSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["type", "protocol_version", "turn", "digest", "stats", "networks"],
  "properties": {
    "type": {"const": "TURN"},
    "protocol_version": {"type": "string"},
    "turn": {"type": "integer", "minimum": 0},
    "digest": {"type": "string"},
    "rebuilt": {"type": "boolean"},
    "highlighted": {"type": "integer", "minimum": 0},
    "stats": {
      "type": "object",
      "required": ["networks", "total_capacity", "total_stored"],
      "properties": {
        "networks": {"type": "integer", "minimum": 0},
        "total_capacity": {"type": "integer", "minimum": 0},
        "total_stored": {"type": "integer", "minimum": 0}
      }
    },
    "networks": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["id", "storage_capacity", "stored_energy", "satisfied"],
        "properties": {
          "id": {"type": "integer", "minimum": 1},
          "storage_capacity": {"type": "integer", "minimum": 0},
          "stored_energy": {"type": "integer", "minimum": 0}
        }
      }
    },
    "edits": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["op"],
        "properties": {
          "op": {"enum": ["place", "remove", "conductor"]},
          "pos": {"type": "object", "required": ["q", "r"]}
        }
      }
    }
  }
}`

const snapshotSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["type", "protocol_version", "snapshot"],
  "properties": {
    "type": {"const": "SNAPSHOT"},
    "snapshot": {
      "type": "object",
      "required": ["turn", "networks", "unnetworked", "reservoir"],
      "properties": {
        "networks": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["id", "nodes"],
            "properties": {
              "nodes": {
                "type": "array",
                "items": {"type": "object", "required": ["key", "neighbors", "devices"]}
              }
            }
          }
        }
      }
    }
  }
}`

func validateJSON(t *testing.T, schemaURL, schema string, v any) {
	t.Helper()
	s, err := jsonschema.CompileString(schemaURL, schema)
	if err != nil {
		t.Fatalf("compile %s: %v", schemaURL, err)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := s.Validate(doc); err != nil {
		t.Fatalf("validate %s: %v\n%s", schemaURL, err, raw)
	}
}

func TestTurnMsg_MatchesSchema(t *testing.T) {
	at := hexgrid.C(2, -1)
	r := power.TurnReport{
		Turn:   7,
		Digest: "abc",
		Stats:  power.Stats{Turn: 7, Networks: 2, TotalCapacity: 30, TotalStored: 12},
		Networks: []power.NetworkTelemetry{
			{ID: 1, Nodes: 3, StorageCapacity: 20, StoredEnergy: 10, Satisfied: true},
			{ID: 2, Nodes: 1},
		},
		Edits: []power.Edit{{Op: "place", Category: "storage", Pos: &at, DeviceID: "d1"}},
	}
	msg := observerproto.NewTurnMsg(r, 1)
	validateJSON(t, "turn.schema.json", turnSchema, msg)

	only := msg.Filter(2)
	if len(only.Networks) != 1 || only.Networks[0].ID != 2 || len(msg.Networks) != 2 {
		t.Fatalf("filter: %+v", only.Networks)
	}
	validateJSON(t, "turn.schema.json", turnSchema, observerproto.NewTurnMsg(power.TurnReport{Turn: 0}, 0))
}

func TestSnapshotMsg_MatchesSchema(t *testing.T) {
	snap := power.DebugSnapshot{
		Turn: 3,
		Networks: []power.DebugNetwork{{
			ID: 1,
			Nodes: []power.DebugNode{{
				Key:       hexgrid.C(0, 0),
				Neighbors: []hexgrid.Coord{hexgrid.C(1, 0)},
				Devices:   []power.DebugDevice{{ID: "d", Category: "storage"}},
			}},
		}},
		Unnetworked: []power.DebugNode{},
	}
	validateJSON(t, "snapshot.schema.json", snapshotSchema, observerproto.NewSnapshotMsg(snap))
}
