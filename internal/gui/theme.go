package gui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// lohnkontoTheme keeps the default look with the blue accents of the web frontend.
type lohnkontoTheme struct{}

var (
	colorBlue  = color.NRGBA{R: 0x25, G: 0x63, B: 0xEB, A: 0xFF}
	colorGreen = color.NRGBA{R: 0x16, G: 0xA3, B: 0x4A, A: 0xFF}
	colorRed   = color.NRGBA{R: 0xDC, G: 0x26, B: 0x26, A: 0xFF}
	colorAmber = color.NRGBA{R: 0xD9, G: 0x77, B: 0x06, A: 0xFF}
)

func (t *lohnkontoTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary, theme.ColorNameFocus:
		return colorBlue
	case theme.ColorNameForegroundOnPrimary:
		return color.White
	case theme.ColorNameSuccess:
		return colorGreen
	case theme.ColorNameError:
		return colorRed
	case theme.ColorNameWarning:
		return colorAmber
	default:
		return theme.DefaultTheme().Color(name, variant)
	}
}

func (t *lohnkontoTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *lohnkontoTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *lohnkontoTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNameHeadingText:
		return 22
	case theme.SizeNameInnerPadding:
		return 10
	default:
		return theme.DefaultTheme().Size(name)
	}
}
