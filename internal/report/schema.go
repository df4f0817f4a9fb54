package report

// Schema is the JSON Schema (Draft 2020-12) for the apicov JSON
// report. It documents the structure written by WriteJSON.
const Schema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://github.com/unbound-force/apicov/coverage-report.schema.json",
  "title": "apicov Coverage Report",
  "description": "Output schema for apicov run --format=json and apicov-results.json",
  "type": "object",
  "required": ["version", "runId", "info", "summary", "operations", "missed", "generationStatistics", "errors"],
  "properties": {
    "version": {
      "type": "string",
      "description": "apicov version that produced the report"
    },
    "runId": {
      "type": "string",
      "description": "Unique identifier of the run"
    },
    "info": { "$ref": "#/$defs/Info" },
    "summary": { "$ref": "#/$defs/Summary" },
    "operations": {
      "type": "array",
      "description": "Contract operations ordered by path, then method",
      "items": { "$ref": "#/$defs/Operation" }
    },
    "missed": {
      "type": "object",
      "description": "Captured operations absent from the contract, keyed by \"METHOD /path\"",
      "additionalProperties": { "$ref": "#/$defs/MissedOperation" }
    },
    "generationStatistics": { "$ref": "#/$defs/GenerationStatistics" },
    "errors": {
      "type": "array",
      "description": "Capture sources that could not be read",
      "items": { "type": "string" }
    }
  },
  "$defs": {
    "Info": {
      "type": "object",
      "required": ["title", "version"],
      "properties": {
        "title": { "type": "string" },
        "version": { "type": "string" },
        "description": { "type": "string" }
      }
    },
    "Summary": {
      "type": "object",
      "required": [
        "operations", "fullyCovered", "partiallyCovered", "uncovered",
        "conditions", "coveredConditions", "percentage", "missedOperations"
      ],
      "properties": {
        "operations": { "type": "integer", "minimum": 0 },
        "fullyCovered": { "type": "integer", "minimum": 0 },
        "partiallyCovered": { "type": "integer", "minimum": 0 },
        "uncovered": { "type": "integer", "minimum": 0 },
        "conditions": { "type": "integer", "minimum": 0 },
        "coveredConditions": { "type": "integer", "minimum": 0 },
        "percentage": { "type": "number", "minimum": 0, "maximum": 100 },
        "missedOperations": { "type": "integer", "minimum": 0 },
        "operationsReached": { "type": "integer", "minimum": 0 },
        "reachedPercentage": { "type": "number", "minimum": 0, "maximum": 100 },
        "conditionsPerOperation": { "type": "number", "minimum": 0 },
        "resultFileCount": { "type": "integer", "minimum": 0 },
        "failedFileCount": { "type": "integer", "minimum": 0 },
        "generationTime": { "type": "integer", "minimum": 0 },
        "hasCaptureFailures": { "type": "boolean" }
      }
    },
    "Operation": {
      "type": "object",
      "required": ["method", "path", "state", "covered", "total", "percentage", "conditions"],
      "properties": {
        "method": { "type": "string" },
        "path": { "type": "string" },
        "operationId": { "type": "string" },
        "summary": { "type": "string" },
        "tags": { "type": "array", "items": { "type": "string" } },
        "state": { "enum": ["full", "partial", "empty"] },
        "covered": { "type": "integer", "minimum": 0 },
        "total": { "type": "integer", "minimum": 0 },
        "percentage": { "type": "number", "minimum": 0, "maximum": 100 },
        "conditions": {
          "type": "array",
          "items": { "$ref": "#/$defs/Condition" }
        }
      }
    },
    "Condition": {
      "type": "object",
      "required": ["name", "description", "covered"],
      "properties": {
        "name": { "type": "string" },
        "description": { "type": "string" },
        "covered": { "type": "boolean" }
      }
    },
    "MissedOperation": {
      "type": "object",
      "required": ["method", "path", "parameters", "responses"],
      "properties": {
        "method": { "type": "string" },
        "path": { "type": "string" },
        "parameters": { "type": "array", "items": { "type": "string" } },
        "responses": { "type": "array", "items": { "type": "string" } }
      }
    },
    "GenerationStatistics": {
      "type": "object",
      "required": ["resultFileCount", "failedFileCount", "generationTime"],
      "properties": {
        "resultFileCount": {
          "type": "integer",
          "minimum": 0,
          "description": "Capture sources processed"
        },
        "failedFileCount": {
          "type": "integer",
          "minimum": 0,
          "description": "Capture sources skipped because they could not be read"
        },
        "generationTime": {
          "type": "integer",
          "minimum": 0,
          "description": "Wall-clock duration of the run in milliseconds"
        },
        "startedAt": {
          "type": "string",
          "format": "date-time"
        }
      }
    }
  }
}`
