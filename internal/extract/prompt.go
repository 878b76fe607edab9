package extract

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
)

// scoreReply is the shape the recovery prompt asks the model to emit.
type scoreReply struct {
	Score       float64 `json:"score" jsonschema:"required,minimum=1,maximum=5,description=评分（1-5的数字）"`
	Explanation string  `json:"explanation" jsonschema:"required,description=评分的简要解释"`
}

var replySchema = sync.OnceValue(func() string {
	r := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}
	b, err := json.MarshalIndent(r.Reflect(&scoreReply{}), "", "  ")
	if err != nil {
		panic(fmt.Sprintf("marshal reply schema: %v", err))
	}
	return string(b)
})

// ReplySchema returns the JSON schema of a {score, explanation} reply.
func ReplySchema() string {
	return replySchema()
}

// RecoveryPrompt asks the model to restate a malformed reply as
// {score, explanation}.
func RecoveryPrompt(raw string) string {
	var sb strings.Builder
	sb.WriteString("以下是一个AI模型的响应，但其JSON格式可能不正确。请从中提取评分（1-5的数字）和解释。\n")
	sb.WriteString("如果无法提取，请返回null作为评分和解释。\n\n")
	sb.WriteString("响应内容：\n")
	sb.WriteString(raw)
	sb.WriteString("\n\n请以以下格式输出结果：\n")
	sb.WriteString(`{"score": 提取的评分, "explanation": "提取的解释"}`)
	sb.WriteString("\n\n输出必须符合以下JSON Schema：\n")
	sb.WriteString(ReplySchema())
	sb.WriteString("\n")
	return sb.String()
}
