package notion

import (
	"context"
	"unicode/utf8"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

const (
	// maxChildren is the most blocks Notion accepts in one request.
	maxChildren = 100
	// maxText is the Notion limit for one rich text object.
	maxText = 2000
)

// Section is one headed part of a published page.
type Section struct {
	Heading    string
	Paragraphs []string
	Bullets    []string
}

// Blocks renders the section as a heading followed by paragraphs and bullets.
func (s Section) Blocks() []notionapi.Block {
	blocks := []notionapi.Block{Heading(s.Heading)}
	for _, p := range s.Paragraphs {
		blocks = append(blocks, Paragraph(p))
	}
	for _, b := range s.Bullets {
		blocks = append(blocks, Bullet(b))
	}
	return blocks
}

// Heading builds a level-2 heading block.
func Heading(text string) notionapi.Block {
	return &notionapi.Heading2Block{
		BasicBlock: notionapi.BasicBlock{Object: notionapi.ObjectTypeBlock, Type: notionapi.BlockTypeHeading2},
		Heading2:   notionapi.Heading{RichText: richText(text)},
	}
}

// Paragraph builds a paragraph block.
func Paragraph(text string) notionapi.Block {
	return &notionapi.ParagraphBlock{
		BasicBlock: notionapi.BasicBlock{Object: notionapi.ObjectTypeBlock, Type: notionapi.BlockTypeParagraph},
		Paragraph:  notionapi.Paragraph{RichText: richText(text)},
	}
}

// Bullet builds a bulleted list item block.
func Bullet(text string) notionapi.Block {
	return &notionapi.BulletedListItemBlock{
		BasicBlock:       notionapi.BasicBlock{Object: notionapi.ObjectTypeBlock, Type: notionapi.BlockTypeBulletedListItem},
		BulletedListItem: notionapi.ListItem{RichText: richText(text)},
	}
}

// TitleProperty builds the title property for a database page.
func TitleProperty(text string) *notionapi.TitleProperty {
	return &notionapi.TitleProperty{
		Type:  notionapi.PropertyTypeTitle,
		Title: richText(text),
	}
}

// TextProperty builds a rich_text property.
func TextProperty(text string) *notionapi.RichTextProperty {
	return &notionapi.RichTextProperty{
		Type:     notionapi.PropertyTypeRichText,
		RichText: richText(text),
	}
}

func richText(text string) []notionapi.RichText {
	return []notionapi.RichText{
		{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: truncate(text, maxText)}},
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// CreateDatabasePage creates a page in dbID and writes all sections into it.
// The first maxChildren blocks travel with the create request and the rest
// are appended in batches.
func CreateDatabasePage(ctx context.Context, c Client, dbID string, props notionapi.Properties, sections []Section) (*notionapi.Page, error) {
	var blocks []notionapi.Block
	for _, s := range sections {
		blocks = append(blocks, s.Blocks()...)
	}

	first := blocks
	if len(first) > maxChildren {
		first = blocks[:maxChildren]
	}

	page, err := c.CreatePage(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(dbID),
		},
		Properties: props,
		Children:   first,
	})
	if err != nil {
		return nil, eris.Wrap(err, "notion: create database page")
	}

	for start := len(first); start < len(blocks); start += maxChildren {
		end := min(start+maxChildren, len(blocks))
		if err := c.AppendBlocks(ctx, string(page.ID), blocks[start:end]); err != nil {
			return page, eris.Wrap(err, "notion: append page content")
		}
	}

	return page, nil
}
