package ml

import (
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// JSON schemas for the artifact files written by the offline trainer. They
// catch structurally broken files before decoding; semantic checks (shapes,
// feature order) happen when the artifact is built.
const modelSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["type"],
  "properties": {
    "type": {"enum": ["linear_regression", "logistic_regression", "tree_ensemble", "neural_network"]},
    "features": {"type": "array", "minItems": 1, "items": {"type": "string"}, "uniqueItems": true},
    "classes": {"type": "array", "minItems": 2, "items": {"type": "string"}, "uniqueItems": true},
    "objective": {"enum": ["regression", "binary"]},
    "aggregation": {"enum": ["sum", "mean"]},
    "base_score": {"type": "number"},
    "input_shape": {"type": "array", "minItems": 1, "items": {"type": "integer", "minimum": 1}},
    "trees": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "array",
        "minItems": 1,
        "items": {
          "type": "object",
          "required": ["is_leaf"],
          "properties": {
            "feature_idx": {"type": "integer"},
            "threshold": {"type": "number"},
            "left_child": {"type": "integer"},
            "right_child": {"type": "integer"},
            "value": {"type": "number"},
            "is_leaf": {"type": "boolean"}
          }
        }
      }
    },
    "layers": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["type"],
        "properties": {
          "type": {"enum": ["dense", "conv2d", "max_pooling2d", "global_average_pooling2d", "flatten"]},
          "activation": {"enum": ["linear", "relu", "relu6", "sigmoid", "softmax"]},
          "padding": {"enum": ["valid", "same"]},
          "strides": {"type": "integer", "minimum": 1},
          "pool_size": {"type": "integer", "minimum": 1}
        }
      }
    }
  },
  "allOf": [
    {
      "if": {"properties": {"type": {"const": "linear_regression"}}},
      "then": {
        "required": ["features", "coef", "intercept"],
        "properties": {"coef": {"type": "array", "items": {"type": "number"}}, "intercept": {"type": "number"}}
      }
    },
    {
      "if": {"properties": {"type": {"const": "logistic_regression"}}},
      "then": {
        "required": ["features", "classes", "coef", "intercept"],
        "properties": {
          "coef": {"type": "array", "items": {"type": "array", "items": {"type": "number"}}},
          "intercept": {"type": "array", "items": {"type": "number"}}
        }
      }
    },
    {
      "if": {"properties": {"type": {"const": "tree_ensemble"}}},
      "then": {"required": ["features", "objective", "trees"]}
    },
    {
      "if": {"properties": {"type": {"const": "neural_network"}}},
      "then": {"required": ["input_shape", "classes", "layers"]}
    }
  ]
}`

const labelEncoderSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["classes"],
  "properties": {
    "classes": {"type": "array", "minItems": 1, "items": {"type": "string"}, "uniqueItems": true}
  }
}`

const encodersSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "minProperties": 1,
  "additionalProperties": {
    "type": "object",
    "required": ["classes"],
    "properties": {
      "classes": {"type": "array", "minItems": 1, "items": {"type": "string"}, "uniqueItems": true}
    }
  }
}`

const scalerSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["kind", "columns"],
  "properties": {
    "kind": {"enum": ["standard", "minmax"]},
    "columns": {"type": "array", "minItems": 1, "items": {"type": "string"}, "uniqueItems": true},
    "mean": {"type": "array", "items": {"type": "number"}},
    "scale": {"type": "array", "items": {"type": "number"}},
    "min": {"type": "array", "items": {"type": "number"}},
    "max": {"type": "array", "items": {"type": "number"}}
  },
  "allOf": [
    {"if": {"properties": {"kind": {"const": "standard"}}}, "then": {"required": ["mean", "scale"]}},
    {"if": {"properties": {"kind": {"const": "minmax"}}}, "then": {"required": ["min", "max"]}}
  ]
}`

var (
	modelSchema        = jsonschema.MustCompileString("model.schema.json", modelSchemaJSON)
	labelEncoderSchema = jsonschema.MustCompileString("label_encoder.schema.json", labelEncoderSchemaJSON)
	encodersSchema     = jsonschema.MustCompileString("encoders.schema.json", encodersSchemaJSON)
	scalerSchema       = jsonschema.MustCompileString("scaler.schema.json", scalerSchemaJSON)
)
