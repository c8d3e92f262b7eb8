package render

import (
	"github.com/gdamore/tcell/v2"

	"github.com/kk-code-lab/seekr/internal/filetype"
)

// ColorTheme defines application colors.
type ColorTheme struct {
	Background      tcell.Color
	Foreground      tcell.Color
	HeaderBg        tcell.Color
	HeaderFg        tcell.Color
	LabelFg         tcell.Color
	FieldActiveBg   tcell.Color
	TreeBg          tcell.Color
	TreeFg          tcell.Color
	FolderFg        tcell.Color
	SelectedFolder  tcell.Color
	HighlightFg     tcell.Color
	SelectionBg     tcell.Color
	SelectionFg     tcell.Color
	InactiveCursor  tcell.Color
	SnippetFg       tcell.Color
	DetailFg        tcell.Color
	ScoreFg         tcell.Color
	FooterBg        tcell.Color
	FooterFg        tcell.Color
	ErrorFg         tcell.Color
	NoticeFg        tcell.Color
	BusyFg          tcell.Color
	Badges          map[filetype.Kind]tcell.Color
}

// GetColorTheme returns the default color scheme.
func GetColorTheme() ColorTheme {
	return ColorTheme{
		Background:     tcell.ColorDefault,
		Foreground:     tcell.ColorDefault,
		HeaderBg:       tcell.ColorDefault,
		HeaderFg:       tcell.ColorDefault,
		LabelFg:        tcell.ColorLightSlateGray,
		FieldActiveBg:  tcell.Color236,
		TreeBg:         tcell.ColorDefault,
		TreeFg:         tcell.ColorDefault,
		FolderFg:       tcell.Color33,
		SelectedFolder: tcell.Color214,
		HighlightFg:    tcell.Color51,
		SelectionBg:    tcell.Color33,
		SelectionFg:    tcell.ColorWhite,
		InactiveCursor: tcell.Color238,
		SnippetFg:      tcell.Color245,
		DetailFg:       tcell.Color250,
		ScoreFg:        tcell.Color244,
		FooterBg:       tcell.ColorDefault,
		FooterFg:       tcell.ColorDefault,
		ErrorFg:        tcell.ColorRed,
		NoticeFg:       tcell.ColorGreen,
		BusyFg:         tcell.ColorYellow,
		Badges: map[filetype.Kind]tcell.Color{
			filetype.PDF:        tcell.Color196,
			filetype.Word:       tcell.Color33,
			filetype.Excel:      tcell.Color34,
			filetype.PowerPoint: tcell.Color208,
			filetype.DocuWorks:  tcell.Color135,
			filetype.Image:      tcell.Color44,
			filetype.CAD:        tcell.Color178,
			filetype.Text:       tcell.Color250,
			filetype.Archive:    tcell.Color137,
		},
	}
}

func (t ColorTheme) badgeColor(k filetype.Kind) tcell.Color {
	if c, ok := t.Badges[k]; ok {
		return c
	}
	return t.LabelFg
}
