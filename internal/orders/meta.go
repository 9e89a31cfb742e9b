package orders

// Meta keys written by the gateways and the webhook handler. Written once at
// charge-creation time, re-written by the webhook handler when the charge id
// only arrives asynchronously, never deleted.
const (
	MetaOrderID      = "_pagbank_order_id"
	MetaChargeID     = "_pagbank_charge_id"
	MetaPassword     = "_pagbank_password"
	MetaEnvironment  = "_pagbank_environment"
	MetaPaymentToken = "_pagbank_payment_token_id"

	MetaCardBrand    = "_pagbank_card_brand"
	MetaInstallments = "_pagbank_installments"

	MetaBoletoBarcode   = "_pagbank_boleto_barcode"
	MetaBoletoDueDate   = "_pagbank_boleto_due_date"
	MetaBoletoPDFLink   = "_pagbank_boleto_pdf_link"
	MetaBoletoImageLink = "_pagbank_boleto_image_link"

	MetaPixQRCodeText  = "_pagbank_pix_qr_text"
	MetaPixQRCodeImage = "_pagbank_pix_qr_image"
	MetaPixExpiresAt   = "_pagbank_pix_expires_at"
)
