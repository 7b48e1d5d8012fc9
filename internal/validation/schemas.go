package validation

// Kind selects the structural schema a document is checked against.
type Kind string

const (
	KindGitHubWorkflow Kind = "github-workflow"
	KindGitHubAction   Kind = "github-action"
	KindGitLab         Kind = "gitlab-ci"
	KindTravis         Kind = "travis-ci"
	KindCircleCI       Kind = "circleci"
)

// Kinds lists every kind with an embedded schema.
var Kinds = []Kind{KindGitHubWorkflow, KindGitHubAction, KindGitLab, KindTravis, KindCircleCI}

func schemaURL(k Kind) string {
	return "https://cigraph.dev/schemas/" + string(k) + ".json"
}

// The schemas below cover the parts of each dialect that call-graph
// construction reads. They are deliberately open (additionalProperties is
// allowed) so new upstream keys do not produce noise.
var schemaSources = map[Kind]string{
	KindGitHubWorkflow: githubWorkflowSchemaJSON,
	KindGitHubAction:   githubActionSchemaJSON,
	KindGitLab:         gitlabSchemaJSON,
	KindTravis:         travisSchemaJSON,
	KindCircleCI:       circleciSchemaJSON,
}

const githubWorkflowSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["jobs"],
  "properties": {
    "name": { "type": "string" },
    "on": {
      "anyOf": [
        { "type": "string" },
        { "type": "array", "items": { "type": "string" } },
        { "type": "object" }
      ]
    },
    "jobs": {
      "type": "object",
      "minProperties": 1,
      "propertyNames": { "pattern": "^[A-Za-z_][A-Za-z0-9_-]*$" },
      "additionalProperties": { "$ref": "#/$defs/job" }
    }
  },
  "$defs": {
    "job": {
      "type": "object",
      "properties": {
        "uses": { "type": "string", "minLength": 1 },
        "needs": {
          "anyOf": [
            { "type": "string" },
            { "type": "array", "items": { "type": "string" } }
          ]
        },
        "steps": {
          "type": "array",
          "items": { "$ref": "#/$defs/step" }
        }
      },
      "oneOf": [
        { "required": ["uses"], "not": { "required": ["steps"] } },
        { "required": ["runs-on"] }
      ]
    },
    "step": {
      "type": "object",
      "properties": {
        "uses": { "type": "string", "minLength": 1 },
        "run": { "type": "string" }
      },
      "oneOf": [
        { "required": ["uses"], "not": { "required": ["run"] } },
        { "required": ["run"], "not": { "required": ["uses"] } }
      ]
    }
  }
}`

const githubActionSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["runs"],
  "properties": {
    "name": { "type": "string" },
    "runs": {
      "type": "object",
      "required": ["using"],
      "properties": {
        "using": { "type": "string" },
        "steps": {
          "type": "array",
          "items": {
            "type": "object",
            "properties": {
              "uses": { "type": "string", "minLength": 1 },
              "run": { "type": "string" }
            }
          }
        }
      }
    }
  }
}`

const gitlabSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "stages": { "type": "array", "items": { "type": "string" } },
    "include": { "$ref": "#/$defs/include" }
  },
  "$defs": {
    "includeEntry": {
      "anyOf": [
        { "type": "string", "minLength": 1 },
        {
          "type": "object",
          "properties": {
            "local": { "type": "string" },
            "project": { "type": "string" },
            "ref": { "type": "string" },
            "file": {
              "anyOf": [
                { "type": "string" },
                { "type": "array", "items": { "type": "string" } }
              ]
            },
            "remote": { "type": "string" },
            "template": { "type": "string" },
            "component": { "type": "string" }
          },
          "dependentRequired": { "project": ["file"] }
        }
      ]
    },
    "include": {
      "anyOf": [
        { "$ref": "#/$defs/includeEntry" },
        { "type": "array", "items": { "$ref": "#/$defs/includeEntry" } }
      ]
    }
  }
}`

const travisSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "language": { "type": "string" },
    "import": {
      "anyOf": [
        { "$ref": "#/$defs/importEntry" },
        { "type": "array", "items": { "$ref": "#/$defs/importEntry" } }
      ]
    }
  },
  "$defs": {
    "importEntry": {
      "anyOf": [
        { "type": "string", "minLength": 1 },
        {
          "type": "object",
          "required": ["source"],
          "properties": {
            "source": { "type": "string", "minLength": 1 },
            "mode": { "type": "string", "enum": ["merge", "deep_merge", "deep_merge_append", "deep_merge_prepend"] },
            "if": { "type": "string" }
          }
        }
      ]
    }
  }
}`

const circleciSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["version"],
  "properties": {
    "version": { "type": ["number", "string"] },
    "orbs": {
      "type": "object",
      "additionalProperties": {
        "anyOf": [
          { "type": "string" },
          { "type": "object" }
        ]
      }
    },
    "jobs": { "type": "object" },
    "workflows": { "type": "object" }
  }
}`
