package repair

import "github.com/santhosh-tekuri/jsonschema/v5"

// Shape schemas for the payload kinds. They check required keys and value
// types only; counts such as "at least one workout" are business rules
// enforced by the domain validators so they surface as validation feedback.
var (
	trainingSchema  = jsonschema.MustCompileString("training.json", trainingSchemaJSON)
	nutritionSchema = jsonschema.MustCompileString("nutrition.json", nutritionSchemaJSON)
	sleepSchema     = jsonschema.MustCompileString("sleep.json", sleepSchemaJSON)
	chatSchema      = jsonschema.MustCompileString("chat.json", chatSchemaJSON)
)

const trainingSchemaJSON = `{
  "type": "object",
  "required": ["workouts"],
  "properties": {
    "weekIndex": {"type": "integer"},
    "workouts": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "sets"],
        "properties": {
          "id": {"type": "string"},
          "date": {"type": "string"},
          "title": {"type": "string"},
          "notes": {"type": "string"},
          "sets": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["exerciseId", "reps"],
              "properties": {
                "exerciseId": {"type": "string"},
                "reps": {"type": "integer"},
                "weightKg": {"type": "number"},
                "rpe": {"type": "number"}
              }
            }
          }
        }
      }
    }
  }
}`

const nutritionSchemaJSON = `{
  "type": "object",
  "required": ["days"],
  "properties": {
    "weekIndex": {"type": "integer"},
    "notes": {"type": "string"},
    "days": {
      "type": "object",
      "additionalProperties": {
        "type": "array",
        "items": {
          "type": "object",
          "required": ["name", "ingredients"],
          "properties": {
            "name": {"type": "string"},
            "macros": {
              "type": "object",
              "properties": {
                "kcal": {"type": "number"},
                "protein": {"type": "number"},
                "fat": {"type": "number"},
                "carbs": {"type": "number"}
              }
            },
            "ingredients": {
              "type": "array",
              "items": {
                "type": "object",
                "required": ["name"],
                "properties": {
                  "name": {"type": "string"},
                  "amount": {"type": "number"},
                  "unit": {"type": "string"}
                }
              }
            }
          }
        }
      }
    }
  }
}`

const sleepSchemaJSON = `{
  "type": "object",
  "required": ["messages"],
  "properties": {
    "messages": {"type": "array", "items": {"type": "string"}},
    "disclaimer": {"type": "string"}
  }
}`

const chatSchemaJSON = `{
  "type": "object",
  "required": ["message"],
  "properties": {
    "message": {"type": "string"},
    "suggestions": {"type": "array", "items": {"type": "string"}}
  }
}`
