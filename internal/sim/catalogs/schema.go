package catalogs

const deviceCatalogSchemaURL = "devices.schema.json"

const deviceCatalogSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id", "category"],
    "additionalProperties": false,
    "properties": {
      "id": {"type": "string", "minLength": 1},
      "category": {"type": "string", "minLength": 1},
      "aliases": {"type": "array", "items": {"type": "string", "minLength": 1}},
      "energy": {
        "type": "object",
        "additionalProperties": false,
        "properties": {
          "production_per_turn": {"type": "integer", "minimum": 0},
          "consumption_per_turn": {"type": "integer", "minimum": 0},
          "storage_capacity": {"type": "integer", "minimum": 0},
          "fuel_per_turn": {"type": "integer", "minimum": 0},
          "fuel_resource": {"type": "string"},
          "requires_power": {"type": "boolean"},
          "pulls_from_network": {"type": "boolean"}
        }
      }
    }
  }
}`
