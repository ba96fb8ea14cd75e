// Package cloudprint provides a client for the Google Cloud Print API.
//
// The client is constructed from OAuth client credentials plus an access and
// refresh token pair. It does no network activity until a method is called.
//
// Basic usage:
//
//	client, err := cloudprint.New(cloudprint.Config{
//		ClientID:     clientID,
//		ClientSecret: clientSecret,
//		AccessToken:  accessToken,
//		RefreshToken: refreshToken,
//	})
//
//	// List available printers
//	printers, err := client.ListPrinters(ctx)
//
//	// Print a document by URL
//	resp, err := client.Submit(ctx, &cloudprint.PrintJob{
//		PrinterID:   printers[0].ID,
//		Content:     "https://example.com/invoice.pdf",
//		ContentType: "url",
//		Title:       "Invoice",
//	})
//
// Every API call carries the current access token. When the API rejects it
// with 403, the client refreshes the token once and repeats the call once;
// a second rejection is returned to the caller. Errors for rejected tokens
// match ErrAuthorization with errors.Is.
package cloudprint
