package processor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/trafficlaw/internal/models"
	"github.com/xhad/trafficlaw/pkg/processor"
	"golang.org/x/text/unicode/norm"
)

func TestProcessor_Chunk(t *testing.T) {
	p := processor.New()

	paragraphs := []string{
		"QUỐC HỘI",
		"LUẬT TRẬT TỰ, AN TOÀN GIAO THÔNG ĐƯỜNG BỘ",
		"",
		"Điều 1. Phạm vi điều chỉnh",
		"Luật này quy định về quy tắc giao thông đường bộ.",
		"Điều 2. Giải thích từ ngữ",
		"1. Đường bộ gồm đường, cầu đường bộ.",
		"   ",
		"a) Đường đô thị;",
		"2.   Phương tiện giao thông đường bộ.",
		"ĐIỀU 3 Nguyên tắc",
		"1.",
		"2. Tuân thủ quy định.",
	}

	chunks := p.Chunk(paragraphs, "documents/Law-36-2024-QH15.docx", "law_36_2024")
	require.Len(t, chunks, 4)

	assert.Equal(t, models.ChunkMetadata{
		Source:        "law_36_2024",
		SourceFile:    "Law-36-2024-QH15.docx",
		ArticleNumber: 1,
		ArticleTitle:  "Phạm vi điều chỉnh",
		ClauseNumber:  0,
	}, chunks[0].Metadata)
	assert.Equal(t, "Luật này quy định về quy tắc giao thông đường bộ.", chunks[0].Content)

	assert.Equal(t, 2, chunks[1].Metadata.ArticleNumber)
	assert.Equal(t, 1, chunks[1].Metadata.ClauseNumber)
	assert.Equal(t, "Đường bộ gồm đường, cầu đường bộ.\na) Đường đô thị;", chunks[1].Content)

	assert.Equal(t, 2, chunks[2].Metadata.ClauseNumber)
	assert.Equal(t, "Phương tiện giao thông đường bộ.", chunks[2].Content)

	// Clause "1." of article 3 has no text and is dropped
	assert.Equal(t, 3, chunks[3].Metadata.ArticleNumber)
	assert.Equal(t, "Nguyên tắc", chunks[3].Metadata.ArticleTitle)
	assert.Equal(t, 2, chunks[3].Metadata.ClauseNumber)
	assert.Equal(t, "Tuân thủ quy định.", chunks[3].Content)
}

func TestProcessor_ChunkEdgeCases(t *testing.T) {
	p := processor.New()

	tests := []struct {
		name       string
		paragraphs []string
		want       []models.Chunk
	}{
		{
			name:       "no articles",
			paragraphs: []string{"1. Lời nói đầu", "Văn bản không có điều."},
			want:       nil,
		},
		{
			name:       "article without title or body",
			paragraphs: []string{"Điều 7.", "Điều 8", "Nội dung"},
			want: []models.Chunk{{
				Content: "Nội dung",
				Metadata: models.ChunkMetadata{
					Source: "nd_168_2024", SourceFile: "decree.docx",
					ArticleNumber: 8, ArticleTitle: "Điều 8", ClauseNumber: 0,
				},
			}},
		},
		{
			name:       "decomposed unicode and non-breaking spaces",
			paragraphs: []string{norm.NFD.String("Điều 6. Xử phạt"), "1.\u00a0Phạt tiền"},
			want: []models.Chunk{{
				Content: "Phạt tiền",
				Metadata: models.ChunkMetadata{
					Source: "nd_168_2024", SourceFile: "decree.docx",
					ArticleNumber: 6, ArticleTitle: "Xử phạt", ClauseNumber: 1,
				},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Chunk(tt.paragraphs, "/tmp/decree.docx", "nd_168_2024")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAssignIDs(t *testing.T) {
	p := processor.New()

	law := p.Chunk([]string{"Điều 1. A", "1. a", "2. b"}, "law.docx", "law_36_2024")
	decree := p.Chunk([]string{"Điều 4. B", "Nội dung"}, "decree.docx", "nd_168_2024")
	all := append(law, decree...)

	processor.AssignIDs(all)

	assert.Equal(t, "law_36_2024-art1-clause1-0", all[0].ID)
	assert.Equal(t, "law_36_2024-art1-clause2-1", all[1].ID)
	assert.Equal(t, "nd_168_2024-art4-clause0-2", all[2].ID)
}

func TestNewWithConfig(t *testing.T) {
	_, err := processor.NewWithConfig(processor.ProcessorConfig{ArticlePattern: "("})
	assert.Error(t, err)

	p, err := processor.NewWithConfig(processor.ProcessorConfig{ArticlePattern: `^Article\s+(\d+)\.?\s*(.*)`})
	require.NoError(t, err)
	chunks := p.Chunk([]string{"Article 2. Scope", "1. Text"}, "law.txt", "law")
	require.Len(t, chunks, 1)
	assert.Equal(t, "Scope", chunks[0].Metadata.ArticleTitle)
}
