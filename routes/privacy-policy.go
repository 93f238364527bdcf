package routes

import (
	"fmt"
	"net/http"
)

// PrivacyPolicyHandler serves the Privacy Policy content
func PrivacyPolicyHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")

	// Serve Privacy Policy content as HTML
	html := `
	<!DOCTYPE html>
	<html lang="en">
	<head>
		<meta charset="UTF-8">
		<meta name="viewport" content="width=device-width, initial-scale=1.0">
		<title>Privacy Policy</title>
	</head>
	<body>
		<h1>Privacy Policy</h1>
		<p>Welcome to Murmur. Only your gender and verification state are ever shared with a match.</p>
		<p>Thoughts, confessions and replies are published without your identity.</p>
		<p>Contact us at <a href="mailto:support@murmur.app">support@murmur.app</a> for questions.</p>
	</body>
	</html>
	`
	fmt.Fprint(w, html)
}
