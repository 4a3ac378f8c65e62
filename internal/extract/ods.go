package extract

// extractODS returns the cell text of an OpenDocument spreadsheet.
func extractODS(content []byte) (string, error) {
	return extractOpenDocument("ODS", content, odfTextP, odfTextSpan)
}
