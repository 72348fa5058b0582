package lang

import "strings"

// phrasebook is the static offline table of common phrases, keyed by the
// lowercased English phrase, then by target language code. It is the last
// translation fallback before giving up, so it stays deliberately small:
// greetings, yes/no, thanks.
var phrasebook = map[string]map[string]string{
	"hello": {
		"es": "hola", "fr": "bonjour", "de": "hallo", "it": "ciao",
		"pt": "olá", "ru": "привет", "ja": "こんにちは", "ko": "안녕하세요",
		"zh": "你好", "ar": "مرحبا", "hi": "नमस्ते", "en": "hello",
	},
	"good morning": {
		"es": "buenos días", "fr": "bonjour", "de": "guten Morgen", "it": "buongiorno",
		"pt": "bom dia", "ru": "доброе утро", "ja": "おはようございます", "ko": "좋은 아침",
		"zh": "早上好", "ar": "صباح الخير", "hi": "सुप्रभात", "en": "good morning",
	},
	"good evening": {
		"es": "buenas noches", "fr": "bonsoir", "de": "guten Abend", "it": "buonasera",
		"pt": "boa noite", "ru": "добрый вечер", "ja": "こんばんは", "ko": "좋은 저녁",
		"zh": "晚上好", "ar": "مساء الخير", "hi": "शुभ संध्या", "en": "good evening",
	},
	"goodbye": {
		"es": "adiós", "fr": "au revoir", "de": "auf Wiedersehen", "it": "arrivederci",
		"pt": "adeus", "ru": "до свидания", "ja": "さようなら", "ko": "안녕히 가세요",
		"zh": "再见", "ar": "وداعا", "hi": "अलविदा", "en": "goodbye",
	},
	"yes": {
		"es": "sí", "fr": "oui", "de": "ja", "it": "sì",
		"pt": "sim", "ru": "да", "ja": "はい", "ko": "네",
		"zh": "是", "ar": "نعم", "hi": "हाँ", "en": "yes",
	},
	"no": {
		"es": "no", "fr": "non", "de": "nein", "it": "no",
		"pt": "não", "ru": "нет", "ja": "いいえ", "ko": "아니요",
		"zh": "不", "ar": "لا", "hi": "नहीं", "en": "no",
	},
	"thank you": {
		"es": "gracias", "fr": "merci", "de": "danke", "it": "grazie",
		"pt": "obrigado", "ru": "спасибо", "ja": "ありがとうございます", "ko": "감사합니다",
		"zh": "谢谢", "ar": "شكرا", "hi": "धन्यवाद", "en": "thank you",
	},
	"please": {
		"es": "por favor", "fr": "s'il vous plaît", "de": "bitte", "it": "per favore",
		"pt": "por favor", "ru": "пожалуйста", "ja": "お願いします", "ko": "부탁합니다",
		"zh": "请", "ar": "من فضلك", "hi": "कृपया", "en": "please",
	},
	"excuse me": {
		"es": "disculpe", "fr": "excusez-moi", "de": "entschuldigung", "it": "mi scusi",
		"pt": "com licença", "ru": "извините", "ja": "すみません", "ko": "실례합니다",
		"zh": "打扰一下", "ar": "عفوا", "hi": "माफ़ कीजिए", "en": "excuse me",
	},
	"help": {
		"es": "ayuda", "fr": "aide", "de": "hilfe", "it": "aiuto",
		"pt": "ajuda", "ru": "помощь", "ja": "助けて", "ko": "도와주세요",
		"zh": "帮助", "ar": "مساعدة", "hi": "मदद", "en": "help",
	},
}

// Phrase looks up an offline translation for text into target. The match is
// exact after trimming and lowercasing; anything fuzzier belongs to the
// remote service, not a static table.
func Phrase(text, target string) (string, bool) {
	entry, ok := phrasebook[strings.ToLower(strings.TrimSpace(text))]
	if !ok {
		return "", false
	}
	out, ok := entry[Normalize(target)]
	return out, ok
}
