package codec

const (
	keyType = "type"
	keyID   = "id"

	keyX            = "x"
	keyY            = "y"
	keyWidth        = "width"
	keyHeight       = "height"
	keyCornerRadius = "corner_radius"
	keyRotation     = "rotation"

	keyStartX      = "start_x"
	keyStartY      = "start_y"
	keyEndX        = "end_x"
	keyEndY        = "end_y"
	keyPoints      = "points"
	keyPathStyle   = "path_style"
	keyStrokeStyle = "stroke_style"
	keyHeadSize    = "head_size"

	keyContent    = "content"
	keyFontSize   = "font_size"
	keyFontFamily = "font_family"
	keyFontWeight = "font_weight"

	keySourceWidth  = "source_width"
	keySourceHeight = "source_height"
	keyFormat       = "format"
	keyDataBase64   = "data_base64"

	keyChildren = "children"

	keyStrokeR     = "stroke_r"
	keyStrokeG     = "stroke_g"
	keyStrokeB     = "stroke_b"
	keyStrokeA     = "stroke_a"
	keyStrokeWidth = "stroke_width"
	keyHasFill     = "has_fill"
	keyFillR       = "fill_r"
	keyFillG       = "fill_g"
	keyFillB       = "fill_b"
	keyFillA       = "fill_a"
	keyFillPattern = "fill_pattern"
	keySloppiness  = "sloppiness"
	keySeed        = "seed"
	keyOpacity     = "opacity"
)
