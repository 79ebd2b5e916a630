package aws

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
)

func TestEmailInput(t *testing.T) {
	in := EmailInput("careers@example.com", "driver@example.com", "Received", "text body", "<p>html</p>")

	assert.Equal(t, "careers@example.com", aws.ToString(in.Source))
	assert.Equal(t, []string{"driver@example.com"}, in.Destination.ToAddresses)
	assert.Equal(t, "Received", aws.ToString(in.Message.Subject.Data))
	assert.Equal(t, "text body", aws.ToString(in.Message.Body.Text.Data))
	assert.Equal(t, "<p>html</p>", aws.ToString(in.Message.Body.Html.Data))

	plain := EmailInput("a@example.com", "b@example.com", "s", "t", "")
	assert.Nil(t, plain.Message.Body.Html)
}

func TestSMSInput(t *testing.T) {
	in := SMSInput("+15551234567", "hello", "DRIVERS")
	assert.Equal(t, "+15551234567", aws.ToString(in.PhoneNumber))
	assert.Equal(t, "Transactional", aws.ToString(in.MessageAttributes["AWS.SNS.SMS.SMSType"].StringValue))
	assert.Equal(t, "DRIVERS", aws.ToString(in.MessageAttributes["AWS.SNS.SMS.SenderID"].StringValue))

	noSender := SMSInput("+15551234567", "hello", "")
	_, ok := noSender.MessageAttributes["AWS.SNS.SMS.SenderID"]
	assert.False(t, ok)
}
