package llm

const defaultSystemTemplate = `Bạn là trợ lý pháp lý tiếng Việt, chuyên về Luật Giao thông đường bộ.
Bạn CHỈ được trả lời dựa trên NGỮ CẢNH được cung cấp.
Sử dụng lịch sử trò chuyện để cuộc hội thoại tự nhiên hơn.`

// Arguments: formatted documents, question.
const defaultContextTemplate = "Ngữ cảnh:\n%s\n---\nCâu hỏi: %s"

const defaultCondenseTemplate = `Dựa vào lịch sử trò chuyện và câu hỏi mới, hãy viết lại câu hỏi mới thành một câu hỏi độc lập, đầy đủ ngữ nghĩa.

Lịch sử trò chuyện:
{{.chat_history}}

Câu hỏi mới: {{.question}}

Câu hỏi độc lập:`
