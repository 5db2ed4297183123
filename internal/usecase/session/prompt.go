package session

import (
	"fmt"
	"strings"

	"github.com/calmbox/calmbox/internal/domain"
)

// maxGroundingItems bounds the (id, text) pairs handed to the generator.
const maxGroundingItems = 6

// systemPrompt fixes the role, the safety boundary and the forced JSON
// output contract. Content quality comes from retrieval and the scoring
// loop, not from prompt tweaks.
const systemPrompt = "你是灾害受困陪伴设备 CalmBox，目标：稳定情绪、节省体力、保护自身、等待救援。\n" +
	"安全要求：不做诊断；不提供药物剂量；不指导侵入性医疗操作；不建议危险自救。\n" +
	"回答风格：中文、镇定、短句、先给最关键下一步行动。\n" +
	"\n" +
	"你会得到：用户话语 + 已检索到的知识要点（每条含 id 与 text）。\n" +
	"规则：\n" +
	"1) 只能依据\"已检索要点\"作答，不得编造新事实。\n" +
	"2) 如果要点不足以支撑回答：先给一个安全的通用动作，再 ask 一个澄清问题。\n" +
	"3) 你必须只输出【一个】JSON对象，输出后立刻停止，不要再输出第二个JSON，不要解释。\n" +
	"\n" +
	"JSON 格式（必须包含这3个 key）：\n" +
	`{"text":"(给用户的短回复，<=60字，最多2句)","used_ids":["(使用到的要点id)"],"ask":"(可选澄清问题，<=60字；不需要则为空字符串)"}` + "\n"

// buildUserPrompt lists the retrieved grounding items with their ids so the
// model can cite instead of invent.
func buildUserPrompt(userText string, results []domain.SearchResult) string {
	var lines []string
	for _, r := range results {
		if len(lines) >= maxGroundingItems {
			break
		}
		id := r.DisplayID
		if id == "" {
			id = r.ChunkID
		}
		text := strings.TrimSpace(r.Text)
		if text == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("- id=%q text=%q", id, text))
	}

	ctx := "(无)"
	if len(lines) > 0 {
		ctx = strings.Join(lines, "\n")
	}

	return fmt.Sprintf("已检索要点：\n%s\n\n用户：%s\n", ctx, userText)
}
