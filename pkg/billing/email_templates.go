package billing

import "fmt"

// buildSubscriptionCancelledEmail returns the email content for a cancelled subscription.
func buildSubscriptionCancelledEmail(userName, baseURL string) (subject, html, plainText string) {
	subject = "Your RestoPlan subscription has been cancelled"

	html = fmt.Sprintf(`
		<html>
		<body>
			<h2>Subscription Cancelled</h2>
			<p>Hi %s,</p>
			<p>Your subscription has ended and your account is now on the Free plan.</p>
			<p>Your business plans are safe. Plans beyond the Free limit stay readable, and you can pick up where you left off whenever you upgrade again.</p>
			<p><a href="%s/pricing" style="background-color: #2196F3; color: white; padding: 14px 20px; text-decoration: none; border-radius: 4px; display: inline-block;">See Plans</a></p>
			<p>Thanks,<br>The RestoPlan Team</p>
		</body>
		</html>
	`, userName, baseURL)

	plainText = fmt.Sprintf(`Hi %s,

Your subscription has ended and your account is now on the Free plan.

Your business plans are safe. Plans beyond the Free limit stay readable, and you can pick up where you left off whenever you upgrade again.

See plans: %s/pricing

Thanks,
The RestoPlan Team
`, userName, baseURL)

	return
}

// buildPaymentFailedEmail returns the email content when a payment fails.
func buildPaymentFailedEmail(userName, baseURL string) (subject, html, plainText string) {
	subject = "Action required: Your RestoPlan payment failed"

	html = fmt.Sprintf(`
		<html>
		<body>
			<h2>Payment Failed</h2>
			<p>Hi %s,</p>
			<p>We were unable to process your latest payment for your RestoPlan subscription.</p>
			<p>Please update your payment method to keep your plan features:</p>
			<p><a href="%s/dashboard/billing" style="background-color: #E74C3C; color: white; padding: 14px 20px; text-decoration: none; border-radius: 4px; display: inline-block;">Update Payment Method</a></p>
			<p>Thanks,<br>The RestoPlan Team</p>
		</body>
		</html>
	`, userName, baseURL)

	plainText = fmt.Sprintf(`Hi %s,

We were unable to process your latest payment for your RestoPlan subscription.

Please update your payment method to keep your plan features:
%s/dashboard/billing

Thanks,
The RestoPlan Team
`, userName, baseURL)

	return
}
